package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenIgnoresKeyOrder(t *testing.T) {
	a := map[string]any{}
	a["zeta"] = 1
	a["alpha"] = map[string]any{"y": []any{1, "two"}, "x": true}

	b := map[string]any{}
	b["alpha"] = map[string]any{"x": true, "y": []any{1, "two"}}
	b["zeta"] = 1

	require.Equal(t, Flatten(a), Flatten(b))
	require.Equal(t, `{"alpha":{"x":true,"y":[1,"two"]},"zeta":1}`, Flatten(a))
}

func TestFlattenDecodedDocumentsAreCanonical(t *testing.T) {
	var a, b any
	require.NoError(t, json.Unmarshal([]byte(`{"b":{"d":1,"c":[{"z":0,"y":1}]},"a":"<x>"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"a":"<x>","b":{"c":[{"y":1,"z":0}],"d":1}}`), &b))

	require.Equal(t, Flatten(a), Flatten(b))
	require.Contains(t, Flatten(a), `"<x>"`, "html escaping stays off")
}

func TestFlattenDeepNesting(t *testing.T) {
	var v any = "leaf"
	for i := 0; i < 200; i++ {
		v = map[string]any{"n": v}
	}
	out := Flatten(v)
	require.Contains(t, out, `"leaf"`)
	require.Equal(t, out, Flatten(v))
}

func TestFlattenScalars(t *testing.T) {
	require.Equal(t, "hello", Flatten("hello"))
	require.Equal(t, "42", Flatten(json.Number("42")))
	require.Equal(t, "1.5", Flatten(1.5))
	require.Equal(t, "7", Flatten(7))
	require.Equal(t, "true", Flatten(true))
	require.Equal(t, "null", Flatten(nil))
	require.Equal(t, "[]", Flatten([]any{}))
}
