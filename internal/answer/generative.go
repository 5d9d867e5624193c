package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docqa/internal/provider"
)

// Generative asks an LLM provider to answer from the ranked passages only.
// Provider failures become an inline error answer so a batch can continue.
type Generative struct {
	provider provider.LLMProvider
	logger   *logrus.Entry
}

func NewGenerative(p provider.LLMProvider, logger *logrus.Entry) *Generative {
	if logger == nil {
		logger = logrus.WithField("component", "generative_answer")
	}
	return &Generative{provider: p, logger: logger}
}

func (g *Generative) Name() string {
	return "generative"
}

func (g *Generative) Answer(ctx context.Context, question string, sources []Source) (Result, error) {
	reasoning := fmt.Sprintf("Answer generated using %s model '%s'.", g.provider.Name(), g.provider.Model())

	text, err := g.provider.Generate(ctx, BuildPrompt(question, sources))
	if err != nil {
		// cancellation aborts the whole request instead of producing a marker
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		err = fmt.Errorf("%w: %w", ErrAnsweringService, err)
		g.logger.WithError(err).WithField("provider", g.provider.Name()).Warn("Generation failed, returning error marker")
		return Result{
			Answer:    fmt.Sprintf("[%s error] %s", g.provider.Name(), errorMessage(err)),
			Reasoning: reasoning,
		}, nil
	}

	return Result{Answer: strings.TrimSpace(text), Reasoning: reasoning}, nil
}

// BuildPrompt renders the question and page-tagged passages for the model
func BuildPrompt(question string, sources []Source) string {
	blocks := make([]string, len(sources))
	for i, src := range sources {
		blocks[i] = fmt.Sprintf("[Page %d] %s", src.Page, src.Text)
	}

	return "You are a helpful assistant. Answer the following query based only on the provided context.\n\n" +
		"Query: " + question + "\n\n" +
		"Context:\n" + strings.Join(blocks, "\n\n") + "\n\n" +
		"Answer:"
}

// errorMessage drops the sentinel prefix from a wrapped failure
func errorMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrAnsweringService.Error()+": ")
}
