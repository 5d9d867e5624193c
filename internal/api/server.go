package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/engine"
	"github.com/knowledge-engine/docqa/internal/extract"
	"github.com/knowledge-engine/docqa/internal/fetcher"
	"github.com/knowledge-engine/docqa/internal/search"
)

const maxRequestBody = 1 << 20

// Pipeline answers questions about a remote document
type Pipeline interface {
	Run(ctx context.Context, rawURL string, questions []string) ([]engine.Record, error)
	Stats() engine.Stats
}

type Server struct {
	Pipeline Pipeline
	Logger   *logrus.Entry
	Router   *http.ServeMux

	config     config.ServerConfig
	httpServer *http.Server
}

func NewServer(p Pipeline, cfg config.ServerConfig, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.WithField("component", "api")
	}
	s := &Server{
		Pipeline: p,
		Logger:   logger,
		Router:   http.NewServeMux(),
		config:   cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/hackrx/run", s.handleRun)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

// Start serves until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
	}
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Requests and responses

type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type RunResponse struct {
	Answers []engine.Record `json:"answers"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type StatusResponse struct {
	RequestsServed    int64  `json:"requests_served"`
	RequestsFailed    int64  `json:"requests_failed"`
	QuestionsAnswered int64  `json:"questions_answered"`
	Uptime            string `json:"uptime"`
}

// Handlers

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if code, msg := s.authorize(r.Header.Get("Authorization")); code != http.StatusOK {
		jsonResponse(w, code, ErrorResponse{Detail: msg})
		return
	}

	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Documents) == "" {
		jsonResponse(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "documents is required"})
		return
	}
	if len(req.Questions) == 0 {
		jsonResponse(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "questions must not be empty"})
		return
	}

	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	s.Logger.WithFields(logrus.Fields{
		"document":  req.Documents,
		"questions": len(req.Questions),
	}).Info("Received request for document")

	records, err := s.Pipeline.Run(ctx, req.Documents, req.Questions)
	if err != nil {
		code, msg := errorStatus(err)
		s.Logger.WithError(err).WithField("status", code).Debug("Run failed")
		jsonResponse(w, code, ErrorResponse{Detail: msg})
		return
	}

	jsonResponse(w, http.StatusOK, RunResponse{Answers: records})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.Pipeline.Stats()
	jsonResponse(w, http.StatusOK, StatusResponse{
		RequestsServed:    stats.RequestsServed,
		RequestsFailed:    stats.RequestsFailed,
		QuestionsAnswered: stats.QuestionsAnswered,
		Uptime:            time.Since(stats.StartTime).Truncate(time.Second).String(),
	})
}

// authorize checks a bearer team token
func (s *Server) authorize(header string) (int, string) {
	if header == "" {
		return http.StatusUnprocessableEntity, "Authorization header required"
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return http.StatusUnauthorized, "Bearer token required"
	}
	token := strings.TrimSpace(header[len("bearer "):])
	if s.config.TeamToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.TeamToken)) != 1 {
		return http.StatusUnauthorized, "Invalid team token"
	}
	return http.StatusOK, ""
}

// errorStatus maps pipeline errors to a status code and client message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "Request cancelled"
	case errors.Is(err, fetcher.ErrFetchFailed):
		return http.StatusBadRequest, "Unable to download document"
	case errors.Is(err, extract.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity, "Unable to read document"
	case errors.Is(err, engine.ErrNoExtractableText):
		return http.StatusUnprocessableEntity, "No text extracted from document"
	case errors.Is(err, search.ErrInvalidConfiguration):
		return http.StatusBadRequest, search.ErrInvalidConfiguration.Error()
	case errors.Is(err, search.ErrInvalidArgument):
		return http.StatusBadRequest, search.ErrInvalidArgument.Error()
	case errors.Is(err, search.ErrNotFitted):
		return http.StatusInternalServerError, "Unable to process request"
	default:
		return http.StatusBadRequest, "Unable to process request"
	}
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
