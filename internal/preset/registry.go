// Package preset holds the table of named model shortcuts.
package preset

import (
	"sort"
	"strings"
)

// Registry maps preset names to model references. Names are case-insensitive.
type Registry struct {
	refs map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[string]string)}
}

// Builtin returns a registry seeded with the presets shipped with the binary.
func Builtin() *Registry {
	reg := NewRegistry()
	reg.Register("qwen_asx_godmode", "Qwen/Qwen1.5-0.5B")
	reg.Register("rombos_coder_qwen7b", "rombos/rombos-coder-v2.5-qwen-7b")
	return reg
}

// Register adds or replaces a preset. Blank names or references are ignored.
func (r *Registry) Register(name, modelRef string) {
	key := normalize(name)
	modelRef = strings.TrimSpace(modelRef)
	if key == "" || modelRef == "" {
		return
	}
	r.refs[key] = modelRef
}

// Lookup returns the model reference for a preset name.
func (r *Registry) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	ref, ok := r.refs[normalize(name)]
	return ref, ok
}

// Names lists registered presets in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.refs))
	for name := range r.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of presets.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.refs)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
