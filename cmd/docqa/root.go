package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docqa/internal/answer"
	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/engine"
	"github.com/knowledge-engine/docqa/internal/extract"
	"github.com/knowledge-engine/docqa/internal/fetcher"
	"github.com/knowledge-engine/docqa/internal/politeness"
	"github.com/knowledge-engine/docqa/internal/provider"
	"github.com/knowledge-engine/docqa/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Answer questions about a document",
	Long: `docqa downloads a PDF, DOCX or HTML document, ranks its passages
against each question with TF-IDF and answers from the best passages.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (overrides environment)")
}

// loadConfig reads the environment and the optional YAML overlay
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the root log entry from the log settings
func newLogger(cfg config.LogConfig) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger.WithField("service", "docqa"), nil
}

// buildEngine wires the pipeline components from cfg
func buildEngine(cfg *config.Config, logger *logrus.Entry) (*engine.Engine, *politeness.RobotsGuard, error) {
	spool, err := storage.NewSpool(cfg.Fetch.SpoolDir)
	if err != nil {
		return nil, nil, err
	}

	robots := politeness.NewRobotsGuard(cfg.Fetch, nil, logger.WithField("component", "robots_guard"))
	f := fetcher.New(cfg.Fetch, spool, robots, logger.WithField("component", "fetcher"))

	var llm provider.LLMProvider
	if cfg.LLM.Strategy == config.StrategyGenerative {
		llm, err = provider.New(cfg.LLM)
		if err != nil {
			return nil, nil, err
		}
	}
	strategy, err := answer.New(cfg.LLM, llm, logger.WithField("component", "answer"))
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(cfg, logger.WithField("component", "engine"), f, extract.New(), strategy)
	if err != nil {
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{
		"strategy":   strategy.Name(),
		"chunk_size": cfg.Retrieval.ChunkSize,
		"overlap":    cfg.Retrieval.ChunkOverlap,
		"top_k":      cfg.Retrieval.TopK,
		"robots":     cfg.Fetch.EnableRobotsCheck,
		"spool_dir":  spool.Dir(),
	}).Debug("Pipeline configured")

	return eng, robots, nil
}
