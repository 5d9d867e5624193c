package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/docqa/internal/answer"
	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/extract"
	"github.com/knowledge-engine/docqa/internal/fetcher"
	"github.com/knowledge-engine/docqa/internal/search"
)

// ErrNoExtractableText is returned when a document yields no passages.
var ErrNoExtractableText = errors.New("no extractable text")

// DocumentFetcher downloads a document to a local file and releases it
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Download, error)
	Release(d *fetcher.Download) error
}

// TextExtractor turns a local document into ordered pages
type TextExtractor interface {
	Extract(ctx context.Context, path string, format extract.Format) ([]search.Page, error)
}

// Record is the answer to one question
type Record struct {
	Answer    string          `json:"answer"`
	Sources   []answer.Source `json:"sources"`
	Reasoning string          `json:"reasoning"`
}

// Stats is a snapshot of the engine's counters
type Stats struct {
	RequestsServed    int64     `json:"requests_served"`
	RequestsFailed    int64     `json:"requests_failed"`
	QuestionsAnswered int64     `json:"questions_answered"`
	StartTime         time.Time `json:"start_time"`
}

// Engine runs the question answering pipeline over one document per request.
// Every request fits its own vector space; nothing is shared between requests.
type Engine struct {
	config     config.RetrievalConfig
	logger     *logrus.Entry
	fetcher    DocumentFetcher
	extractor  TextExtractor
	strategy   answer.Strategy
	vectorizer *search.Vectorizer

	requestsServed    atomic.Int64
	requestsFailed    atomic.Int64
	questionsAnswered atomic.Int64
	startTime         time.Time
}

// New creates an engine. The fetcher may be nil when only local files or
// already extracted pages are answered.
func New(cfg *config.Config, logger *logrus.Entry, f DocumentFetcher, x TextExtractor, strategy answer.Strategy) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if x == nil || strategy == nil {
		return nil, fmt.Errorf("engine requires an extractor and an answer strategy")
	}
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	return &Engine{
		config:     cfg.Retrieval,
		logger:     logger,
		fetcher:    f,
		extractor:  x,
		strategy:   strategy,
		vectorizer: search.NewVectorizer(search.WithMaxFeatures(cfg.Retrieval.MaxFeatures)),
		startTime:  time.Now(),
	}, nil
}

// Run downloads the document at rawURL and answers every question about it.
// The downloaded file is removed before Run returns.
func (e *Engine) Run(ctx context.Context, rawURL string, questions []string) ([]Record, error) {
	log := e.requestLogger().WithField("document", rawURL)
	start := time.Now()

	records, err := e.run(ctx, log, rawURL, questions)
	return e.finish(log, start, records, err)
}

func (e *Engine) run(ctx context.Context, log *logrus.Entry, rawURL string, questions []string) ([]Record, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", fetcher.ErrFetchFailed)
	}

	download, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := e.fetcher.Release(download); err != nil {
			log.WithError(err).Warn("Failed to remove downloaded document")
		}
	}()
	log.WithFields(logrus.Fields{
		"format": download.Format,
		"bytes":  download.Size,
	}).Debug("Fetched")

	return e.answerFile(ctx, log, download.Path, download.Format, questions)
}

// RunFile answers every question about a local document
func (e *Engine) RunFile(ctx context.Context, path string, questions []string) ([]Record, error) {
	log := e.requestLogger().WithField("document", path)
	start := time.Now()

	records, err := e.answerFile(ctx, log, path, extract.FormatFromPath(path), questions)
	return e.finish(log, start, records, err)
}

// AnswerPages chunks the pages, fits a vector space over the passages and
// answers each question from its top ranked passages. Records are returned
// in question order.
func (e *Engine) AnswerPages(ctx context.Context, pages []search.Page, questions []string) ([]Record, error) {
	return e.answerPages(ctx, e.requestLogger(), pages, questions)
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return Stats{
		RequestsServed:    e.requestsServed.Load(),
		RequestsFailed:    e.requestsFailed.Load(),
		QuestionsAnswered: e.questionsAnswered.Load(),
		StartTime:         e.startTime,
	}
}

func (e *Engine) answerFile(ctx context.Context, log *logrus.Entry, path string, format extract.Format, questions []string) ([]Record, error) {
	pages, err := e.extractor.Extract(ctx, path, format)
	if err != nil {
		return nil, err
	}
	log.WithField("pages", len(pages)).Debug("Extracted")

	return e.answerPages(ctx, log, pages, questions)
}

func (e *Engine) answerPages(ctx context.Context, log *logrus.Entry, pages []search.Page, questions []string) ([]Record, error) {
	// 1. Chunk
	passages, err := search.ChunkPages(pages, e.config.ChunkSize, e.config.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, ErrNoExtractableText
	}
	log.WithField("passages", len(passages)).Debug("Chunked")

	// 2. Fit the per-request vector space
	index, err := search.BuildIndex(e.vectorizer, passages)
	if err != nil {
		return nil, err
	}
	log.WithField("dimension", index.Space.Dimension()).Debug("Fitted")

	// 3. Rank and answer each question
	records := make([]Record, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.config.Concurrency))

	for i, question := range questions {
		if gctx.Err() != nil {
			break
		}
		i, question := i, question
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, err := e.answerQuestion(gctx, index, question)
			if err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
			records[i] = record
			e.questionsAnswered.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.WithField("questions", len(questions)).Debug("Answered")
	return records, nil
}

func (e *Engine) answerQuestion(ctx context.Context, index *search.Index, question string) (Record, error) {
	hits, err := index.Search(question, e.config.TopK)
	if err != nil {
		return Record{}, err
	}

	sources := make([]answer.Source, len(hits))
	for i, hit := range hits {
		sources[i] = answer.Source{
			Text:  hit.Passage.Text,
			Page:  hit.Passage.Page,
			Score: hit.Score,
		}
	}

	result, err := e.strategy.Answer(ctx, question, sources)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Answer:    result.Answer,
		Sources:   sources,
		Reasoning: result.Reasoning,
	}, nil
}

// finish records the outcome of a request in the counters and the log
func (e *Engine) finish(log *logrus.Entry, start time.Time, records []Record, err error) ([]Record, error) {
	log = log.WithField("duration", time.Since(start))
	if err != nil {
		e.requestsFailed.Add(1)
		log.WithError(err).Warn("Request failed")
		return nil, err
	}
	e.requestsServed.Add(1)
	log.WithField("answers", len(records)).Info("Completed")
	return records, nil
}

func (e *Engine) requestLogger() *logrus.Entry {
	return e.logger.WithField("request_id", uuid.NewString())
}
