package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format identifies how a source file is parsed.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatText  Format = "text"
)

type parser struct {
	format Format
	parse  func(io.Reader) ([]Record, error)
}

// parsers dispatches on the lower-cased file extension.
var parsers = map[string]parser{
	".json":  {format: FormatJSON, parse: parseJSON},
	".jsonl": {format: FormatJSONL, parse: parseJSONLines},
	".txt":   {format: FormatText, parse: parseText},
}

// SupportedExtensions lists the extensions the assembler accepts.
func SupportedExtensions() []string {
	return []string{".json", ".jsonl", ".txt"}
}

const maxLineBytes = 64 << 20

// parseJSON accepts a top-level array of objects, a single object, or a stream of concatenated objects.
func parseJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []Record
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return nil, err
			}
			for i, item := range items {
				rec, err := decodeRecord(item)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				records = append(records, rec)
			}
			continue
		}

		rec, err := decodeRecord(trimmed)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

func parseJSONLines(r io.Reader) ([]Record, error) {
	var records []Record
	err := scanLines(r, func(lineNo int, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		rec, err := decodeRecord([]byte(line))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// parseText turns every line, blank ones included, into a {"text": line} record.
func parseText(r io.Reader) ([]Record, error) {
	var records []Record
	err := scanLines(r, func(_ int, line string) error {
		records = append(records, NewRecord(Field{Key: "text", Value: line}))
		return nil
	})
	return records, err
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func scanLines(r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := fn(lineNo, strings.TrimSuffix(scanner.Text(), "\r")); err != nil {
			return err
		}
	}
	return scanner.Err()
}
