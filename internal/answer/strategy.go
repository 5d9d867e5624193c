// Package answer turns a question and its top ranked passages into an
// answer with a short reasoning note.
package answer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/provider"
)

// ErrAnsweringService wraps upstream text generation failures.
var ErrAnsweringService = errors.New("answering service failed")

// Source is a ranked passage handed to a strategy, best first
type Source struct {
	Text  string  `json:"text"`
	Page  int     `json:"page"`
	Score float64 `json:"score"`
}

// Result is a strategy's answer to one question
type Result struct {
	Answer    string
	Reasoning string
}

// Strategy answers one question from its ranked sources
type Strategy interface {
	Name() string
	Answer(ctx context.Context, question string, sources []Source) (Result, error)
}

// New builds the strategy selected in cfg. The generative strategy needs p.
func New(cfg config.LLMConfig, p provider.LLMProvider, logger *logrus.Entry) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategyKeyword, "":
		return NewKeyword(), nil
	case config.StrategyGenerative:
		if p == nil {
			return nil, fmt.Errorf("generative strategy requires an llm provider")
		}
		return NewGenerative(p, logger), nil
	}
	return nil, fmt.Errorf("unknown answer strategy %q", cfg.Strategy)
}
