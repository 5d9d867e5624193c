package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/docqa/internal/api"
	"github.com/knowledge-engine/docqa/internal/engine"
)

var (
	askDocument  string
	askQuestions []string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer questions about one document",
	Long: `Runs the pipeline once for a document URL or local file and prints
the same JSON body the API would return.`,
	Example: `  docqa ask --doc https://example.com/policy.pdf -q "What is the grace period?"
  docqa ask --doc ./handbook.docx -q "Who approves leave?" -q "How many days?"`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askDocument, "doc", "", "document URL or local file path")
	askCmd.Flags().StringArrayVarP(&askQuestions, "question", "q", nil, "question to answer (repeatable)")
	_ = askCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(askQuestions) == 0 {
		return errors.New("at least one --question is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	var records []engine.Record
	if isRemote(askDocument) {
		records, err = eng.Run(cmd.Context(), askDocument, askQuestions)
	} else {
		records, err = eng.RunFile(cmd.Context(), askDocument, askQuestions)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(api.RunResponse{Answers: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func isRemote(document string) bool {
	u, err := url.Parse(document)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
