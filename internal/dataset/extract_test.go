package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, doc string) Record {
	t.Helper()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(doc), &rec))
	return rec
}

func TestExtractTextFieldWins(t *testing.T) {
	rec := mustRecord(t, `{"prompt":"p","completion":"c","text":"plain","instruction":"i","output":"o"}`)
	text, rule := Extract(rec)
	require.Equal(t, "plain", text)
	require.Equal(t, RuleText, rule)
}

func TestExtractNonStringTextFallsThrough(t *testing.T) {
	rec := mustRecord(t, `{"text":{"a":1},"prompt":"hi","completion":"yo"}`)
	text, rule := Extract(rec)
	require.Equal(t, "User: hi\nAssistant: yo", text)
	require.Equal(t, RulePromptCompletion, rule)
}

func TestExtractPromptCompletion(t *testing.T) {
	rec := mustRecord(t, `{"completion":"4","prompt":"2+2?"}`)
	require.Equal(t, "User: 2+2?\nAssistant: 4", ExtractText(rec))
}

func TestExtractInstructionWithoutInput(t *testing.T) {
	rec := mustRecord(t, `{"instruction":"Sort","output":"1,2,3"}`)
	require.Equal(t, "Instruction: Sort\nOutput: 1,2,3", ExtractText(rec))
}

func TestExtractInstructionWithInput(t *testing.T) {
	rec := mustRecord(t, `{"instruction":"Sort","input":"[3,1,2]","output":"1,2,3"}`)
	require.Equal(t, "Instruction: Sort\nInput: [3,1,2]\nOutput: 1,2,3", ExtractText(rec))
}

func TestExtractInstructionEmptyInputOmitted(t *testing.T) {
	for _, doc := range []string{
		`{"instruction":"Sort","input":"","output":"1,2,3"}`,
		`{"instruction":"Sort","input":null,"output":"1,2,3"}`,
		`{"instruction":"Sort","input":[],"output":"1,2,3"}`,
	} {
		require.Equal(t, "Instruction: Sort\nOutput: 1,2,3", ExtractText(mustRecord(t, doc)), doc)
	}
}

func TestExtractFallbackRendersFieldsInOrder(t *testing.T) {
	rec := mustRecord(t, `{"a":1,"b":{"x":2}}`)
	text, rule := Extract(rec)
	require.Equal(t, "a: 1\nb: "+Flatten(map[string]any{"x": json.Number("2")}), text)
	require.Equal(t, "a: 1\nb: {\"x\":2}", text)
	require.Equal(t, RuleFields, rule)
}

func TestExtractFallbackKeepsSourceOrder(t *testing.T) {
	rec := mustRecord(t, `{"zeta":"last?","alpha":"no, first","mid":[1,2]}`)
	require.Equal(t, "zeta: last?\nalpha: no, first\nmid: [1,2]", ExtractText(rec))
}

func TestExtractPartialTemplateFallsThrough(t *testing.T) {
	rec := mustRecord(t, `{"prompt":"only a prompt","score":0.5}`)
	text, rule := Extract(rec)
	require.Equal(t, "prompt: only a prompt\nscore: 0.5", text)
	require.Equal(t, RuleFields, rule)
}

func TestExtractEmptyRecord(t *testing.T) {
	require.Equal(t, "", ExtractText(Record{}))
}

func TestRecordDuplicateKeysKeepFirstPosition(t *testing.T) {
	rec := mustRecord(t, `{"a":1,"b":2,"a":3}`)
	require.Equal(t, "a: 3\nb: 2", ExtractText(rec))
}

func TestRecordRejectsNonObject(t *testing.T) {
	var rec Record
	require.Error(t, json.Unmarshal([]byte(`["x"]`), &rec))
	require.Error(t, json.Unmarshal([]byte(`"x"`), &rec))
}
