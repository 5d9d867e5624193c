package answer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docqa/internal/answer"
	"github.com/knowledge-engine/docqa/internal/config"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Name() string  { return "ollama" }
func (m *MockProvider) Model() string { return "mistral" }

func TestKeyword_MatchesSentences(t *testing.T) {
	sources := []answer.Source{
		{Text: "The grace period is thirty days. Premiums are due monthly.", Page: 2, Score: 0.8},
		{Text: "Coverage starts after the grace period ends. Claims are paid within ten days. The policy renews annually.", Page: 3, Score: 0.5},
	}

	res, err := answer.NewKeyword().Answer(context.Background(), "What is the grace period?", sources)
	require.NoError(t, err)

	assert.Equal(t, "The grace period is thirty days Coverage starts after the grace period ends", res.Answer)
	assert.Equal(t, "Matched 2 sentence(s) using keyword heuristics.", res.Reasoning)
}

func TestKeyword_KeepsFirstThreeMatches(t *testing.T) {
	sources := []answer.Source{
		{Text: "Claims one. Claims two. Nothing here. Claims three. Claims four.", Page: 1},
	}

	res, err := answer.NewKeyword().Answer(context.Background(), "claims", sources)
	require.NoError(t, err)

	assert.Equal(t, "Claims one Claims two Claims three", res.Answer)
	assert.Equal(t, "Matched 4 sentence(s) using keyword heuristics.", res.Reasoning)
}

func TestKeyword_MatchIsCaseInsensitiveSubstring(t *testing.T) {
	sources := []answer.Source{{Text: "HOSPITALIZATION is covered.", Page: 1}}

	res, err := answer.NewKeyword().Answer(context.Background(), "Is hospital care covered", sources)
	require.NoError(t, err)
	assert.Equal(t, "HOSPITALIZATION is covered", res.Answer)
}

func TestKeyword_Fallback(t *testing.T) {
	// "mat" is too short to be a keyword and "what"/"color" never occur
	sources := []answer.Source{{Text: "The cat sat on the mat. The mat was red.", Page: 1, Score: 0.4}}

	res, err := answer.NewKeyword().Answer(context.Background(), "What color was the mat?", sources)
	require.NoError(t, err)

	assert.Contains(t, res.Answer, "mat was red")
	assert.Equal(t, "The cat sat on the mat. The mat was red.", res.Answer)
	assert.Equal(t, "No direct sentence match; returning top passages concatenation.", res.Reasoning)
}

func TestKeyword_FallbackUsesTopThreeAndTruncates(t *testing.T) {
	long := strings.Repeat("a", 500)
	sources := []answer.Source{{Text: long}, {Text: long}, {Text: long}, {Text: "fourth"}}

	res, err := answer.NewKeyword().Answer(context.Background(), "zzzz", sources)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(res.Answer, "..."))
	assert.Equal(t, 1203, len(res.Answer))
	assert.NotContains(t, res.Answer, "fourth")

	short := []answer.Source{{Text: "one"}, {Text: "two"}, {Text: "three"}, {Text: "four"}}
	res, err = answer.NewKeyword().Answer(context.Background(), "zzzz", short)
	require.NoError(t, err)
	assert.Equal(t, "one two three", res.Answer)
}

func TestKeyword_NoSources(t *testing.T) {
	res, err := answer.NewKeyword().Answer(context.Background(), "anything at all", nil)
	require.NoError(t, err)
	assert.Equal(t, "", res.Answer)
	assert.NotEmpty(t, res.Reasoning)
}

func TestGenerative_Answer(t *testing.T) {
	p := new(MockProvider)
	sources := []answer.Source{
		{Text: "Grace period is 30 days.", Page: 4},
		{Text: "Premiums are monthly.", Page: 7},
	}
	expectedPrompt := "You are a helpful assistant. Answer the following query based only on the provided context.\n\n" +
		"Query: What is the grace period?\n\n" +
		"Context:\n[Page 4] Grace period is 30 days.\n\n[Page 7] Premiums are monthly.\n\n" +
		"Answer:"
	p.On("Generate", mock.Anything, expectedPrompt).Return("  Thirty days.\n", nil)

	res, err := answer.NewGenerative(p, nil).Answer(context.Background(), "What is the grace period?", sources)
	require.NoError(t, err)

	assert.Equal(t, "Thirty days.", res.Answer)
	assert.Equal(t, "Answer generated using ollama model 'mistral'.", res.Reasoning)
	p.AssertExpectations(t)
}

func TestGenerative_FailureBecomesMarker(t *testing.T) {
	p := new(MockProvider)
	p.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	res, err := answer.NewGenerative(p, nil).Answer(context.Background(), "q", []answer.Source{{Text: "t", Page: 1}})
	require.NoError(t, err)

	assert.Equal(t, "[ollama error] connection refused", res.Answer)
	assert.Equal(t, "Answer generated using ollama model 'mistral'.", res.Reasoning)
}

func TestGenerative_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := new(MockProvider)
	p.On("Generate", mock.Anything, mock.Anything).Return("", context.Canceled)

	_, err := answer.NewGenerative(p, nil).Answer(ctx, "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	s, err := answer.New(config.LLMConfig{Strategy: config.StrategyKeyword}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "keyword", s.Name())

	s, err = answer.New(config.LLMConfig{Strategy: config.StrategyGenerative}, new(MockProvider), nil)
	require.NoError(t, err)
	assert.Equal(t, "generative", s.Name())

	_, err = answer.New(config.LLMConfig{Strategy: config.StrategyGenerative}, nil, nil)
	assert.Error(t, err)

	_, err = answer.New(config.LLMConfig{Strategy: "oracle"}, nil, nil)
	assert.Error(t, err)
}
