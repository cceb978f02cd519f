package ingestion_engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocalModel struct {
	response string
	err      error
	prompt   string
	calls    int
}

func (m *fakeLocalModel) Generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.response, m.err
}

func TestParseTriplets_CleanArray(t *testing.T) {
	raw := `[{"subject": "Mitochondria", "relation": "is part of", "object": "Cell"}]`

	triplets := ParseTriplets(raw)
	require.Len(t, triplets, 1)
	assert.Equal(t, "Mitochondria", triplets[0].Subject)
	assert.Equal(t, "is part of", triplets[0].Relation)
	assert.Equal(t, "Cell", triplets[0].Object)
}

func TestParseTriplets_FencedWithPreamble(t *testing.T) {
	raw := "Here are the triplets:\n```json\n[{\"subject\": \"A\", \"relation\": \"causes\", \"object\": \"B\"}]\n```"

	triplets := ParseTriplets(raw)
	require.Len(t, triplets, 1)
	assert.Equal(t, "A", triplets[0].Subject)
	assert.Equal(t, "causes", triplets[0].Relation)
	assert.Equal(t, "B", triplets[0].Object)
}

func TestParseTriplets_WrapperObject(t *testing.T) {
	for _, key := range []string{"triplets", "relationships", "data"} {
		raw := `{"` + key + `": [{"subject": "X", "relation": "relates to", "object": "Y"}]}`

		triplets := ParseTriplets(raw)
		require.Len(t, triplets, 1, "wrapper key %q should be recovered", key)
		assert.Equal(t, "X", triplets[0].Subject)
	}
}

func TestParseTriplets_EmbeddedInProse(t *testing.T) {
	raw := `Sure! Based on the text, I extracted: [{"subject": "Water", "relation": "boils at", "object": "100C"}] Hope that helps.`

	triplets := ParseTriplets(raw)
	require.Len(t, triplets, 1)
	assert.Equal(t, "Water", triplets[0].Subject)
}

func TestParseTriplets_BracketsInsideStrings(t *testing.T) {
	raw := `[{"subject": "array[0]", "relation": "indexes", "object": "list [see fig. 2]"}]`

	triplets := ParseTriplets(raw)
	require.Len(t, triplets, 1)
	assert.Equal(t, "array[0]", triplets[0].Subject)
	assert.Equal(t, "list [see fig. 2]", triplets[0].Object)
}

func TestParseTriplets_Garbage(t *testing.T) {
	assert.Nil(t, ParseTriplets("I could not find any relationships in this text."))
	assert.Nil(t, ParseTriplets(""))
	assert.Nil(t, ParseTriplets(`{"unexpected": "shape"}`))
	assert.Nil(t, ParseTriplets(`[1, 2, 3]`))
}

func TestParseTriplets_EmptyArray(t *testing.T) {
	triplets := ParseTriplets("[]")
	assert.NotNil(t, triplets, "an explicit empty array is a valid answer, not a parse failure")
	assert.Empty(t, triplets)
}

func TestExtract_NeverErrors(t *testing.T) {
	ctx := context.Background()

	model := &fakeLocalModel{err: errors.New("ollama is down")}
	ex := NewTripletExtractor(model)
	assert.Nil(t, ex.Extract(ctx, "some page text"))

	model = &fakeLocalModel{response: "not json at all"}
	ex = NewTripletExtractor(model)
	assert.Nil(t, ex.Extract(ctx, "some page text"))
}

func TestExtract_PassesTextIntoPrompt(t *testing.T) {
	model := &fakeLocalModel{response: `[{"subject": "A", "relation": "r", "object": "B"}]`}
	ex := NewTripletExtractor(model)

	triplets := ex.Extract(context.Background(), "photosynthesis converts light into energy")
	require.Len(t, triplets, 1)
	assert.Contains(t, model.prompt, "photosynthesis converts light into energy")
}
