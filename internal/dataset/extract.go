package dataset

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Rule names the schema rule that produced an example.
type Rule string

const (
	RuleText             Rule = "text"
	RulePromptCompletion Rule = "prompt_completion"
	RuleInstruction      Rule = "instruction"
	RuleFields           Rule = "fields"
)

type extractRule struct {
	name   Rule
	match  func(Record) bool
	render func(Record) string
}

// rules is evaluated in order; the first match wins. RuleFields matches everything.
var rules = []extractRule{
	{name: RuleText, match: hasStringText, render: renderText},
	{name: RulePromptCompletion, match: hasAll("prompt", "completion"), render: renderPromptCompletion},
	{name: RuleInstruction, match: hasAll("instruction", "output"), render: renderInstruction},
	{name: RuleFields, match: func(Record) bool { return true }, render: renderFields},
}

// ExtractText maps a record to its training text. It never fails.
func ExtractText(r Record) string {
	text, _ := Extract(r)
	return text
}

// Extract is ExtractText that also reports which rule matched.
func Extract(r Record) (string, Rule) {
	for _, rule := range rules {
		if rule.match(r) {
			return rule.render(r), rule.name
		}
	}
	return renderFields(r), RuleFields
}

func hasStringText(r Record) bool {
	v, ok := r.Get("text")
	if !ok {
		return false
	}
	_, isString := v.(string)
	return isString
}

func hasAll(keys ...string) func(Record) bool {
	return func(r Record) bool { return r.Has(keys...) }
}

func renderText(r Record) string {
	v, _ := r.Get("text")
	return v.(string)
}

func renderPromptCompletion(r Record) string {
	return "User: " + field(r, "prompt") + "\nAssistant: " + field(r, "completion")
}

func renderInstruction(r Record) string {
	var b strings.Builder
	b.WriteString("Instruction: ")
	b.WriteString(field(r, "instruction"))
	if in, ok := r.Get("input"); ok && truthy(in) {
		b.WriteString("\nInput: ")
		b.WriteString(Flatten(in))
	}
	b.WriteString("\nOutput: ")
	b.WriteString(field(r, "output"))
	return b.String()
}

func renderFields(r Record) string {
	lines := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		lines = append(lines, f.Key+": "+Flatten(f.Value))
	}
	return strings.Join(lines, "\n")
}

func field(r Record, key string) string {
	v, _ := r.Get(key)
	return Flatten(v)
}

// truthy treats empty strings, zero numbers, false, null and empty containers as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	default:
		return true
	}
}
