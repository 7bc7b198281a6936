package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrEmptyCorpus is returned when no source produced a single example.
var ErrEmptyCorpus = errors.New("no training examples loaded from any data file")

// Corpus is the ordered list of normalized training texts.
type Corpus []string

// Status is the outcome of loading one source.
type Status string

const (
	StatusLoaded      Status = "loaded"
	StatusMissing     Status = "missing"
	StatusUnsupported Status = "unsupported"
	StatusMalformed   Status = "malformed"
	StatusUnreadable  Status = "unreadable"
)

// SourceReport describes what happened to one input path.
type SourceReport struct {
	Path     string
	Format   Format
	Status   Status
	Examples int
	Err      error
}

// Report summarizes an assembly run, one entry per input path in input order.
type Report struct {
	Sources []SourceReport
	Rules   map[Rule]int
}

// Examples returns the total number of examples produced.
func (r Report) Examples() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Examples
	}
	return total
}

// Skipped returns the sources that contributed nothing because they were missing, unsupported or broken.
func (r Report) Skipped() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		if s.Status != StatusLoaded {
			out = append(out, s)
		}
	}
	return out
}

// MetricsRecorder receives per-source and per-rule counts.
type MetricsRecorder interface {
	RecordSource(format, status string, examples int)
	RecordRule(rule string, n int)
}

// Assembler loads data files and normalizes every record into a Corpus.
type Assembler struct {
	logger  *zap.Logger
	metrics MetricsRecorder
}

// NewAssembler builds an assembler. Both arguments may be nil.
func NewAssembler(logger *zap.Logger, metrics MetricsRecorder) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{logger: logger, metrics: metrics}
}

// Assemble reads paths in order and concatenates their examples. Missing, unsupported and malformed
// files are logged as warnings and skipped; the remaining files are still processed.
// It fails with ErrEmptyCorpus when nothing was produced.
func (a *Assembler) Assemble(paths []string) (Corpus, Report, error) {
	report := Report{
		Sources: make([]SourceReport, 0, len(paths)),
		Rules:   make(map[Rule]int),
	}
	var corpus Corpus

	for _, path := range paths {
		src, examples := a.loadSource(path, report.Rules)
		corpus = append(corpus, examples...)
		report.Sources = append(report.Sources, src)
		if a.metrics != nil {
			a.metrics.RecordSource(string(src.Format), string(src.Status), src.Examples)
		}
	}

	if a.metrics != nil {
		for rule, n := range report.Rules {
			a.metrics.RecordRule(string(rule), n)
		}
	}

	if len(corpus) == 0 {
		return nil, report, fmt.Errorf("%w (%d file(s) given)", ErrEmptyCorpus, len(paths))
	}
	return corpus, report, nil
}

func (a *Assembler) loadSource(path string, rules map[Rule]int) (SourceReport, []string) {
	src := SourceReport{Path: path}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		src.Status = StatusMissing
		src.Err = err
		a.logger.Warn("data file missing, skipping", zap.String("path", path))
		return src, nil
	case err != nil:
		src.Status = StatusUnreadable
		src.Err = err
		a.logger.Warn("data file unreadable, skipping", zap.String("path", path), zap.Error(err))
		return src, nil
	case info.IsDir():
		src.Status = StatusUnsupported
		src.Err = errors.New("is a directory")
		a.logger.Warn("data path is a directory, skipping", zap.String("path", path))
		return src, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	p, ok := parsers[ext]
	if !ok {
		src.Status = StatusUnsupported
		src.Err = fmt.Errorf("unsupported extension %q", ext)
		a.logger.Warn("unsupported data file extension, skipping",
			zap.String("path", path),
			zap.String("ext", ext),
			zap.Strings("supported", SupportedExtensions()),
		)
		return src, nil
	}
	src.Format = p.format

	f, err := os.Open(path)
	if err != nil {
		src.Status = StatusUnreadable
		src.Err = err
		a.logger.Warn("data file unreadable, skipping", zap.String("path", path), zap.Error(err))
		return src, nil
	}
	defer f.Close()

	records, err := p.parse(f)
	if err != nil {
		src.Status = StatusMalformed
		src.Err = err
		a.logger.Warn("data file malformed, skipping", zap.String("path", path), zap.Error(err))
		return src, nil
	}

	examples := make([]string, 0, len(records))
	for _, rec := range records {
		text, rule := Extract(rec)
		rules[rule]++
		examples = append(examples, text)
	}

	src.Status = StatusLoaded
	src.Examples = len(examples)
	a.logger.Info("loaded data file",
		zap.String("path", path),
		zap.String("format", string(p.format)),
		zap.Int("examples", len(examples)),
	)
	return src, examples
}
