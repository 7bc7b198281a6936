package connectjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecKeepsHTMLCharacters(t *testing.T) {
	data, err := Codec{}.Marshal(map[string]string{"path": "a<b>&c.jsonl"})
	require.NoError(t, err)
	require.Equal(t, `{"path":"a<b>&c.jsonl"}`, string(data))

	var out map[string]string
	require.NoError(t, Codec{}.Unmarshal(data, &out))
	require.Equal(t, "a<b>&c.jsonl", out["path"])
	require.Equal(t, "json", Codec{}.Name())
}
