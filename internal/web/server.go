package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/conorfennell/decksmith/internal/apkg"
	"github.com/conorfennell/decksmith/internal/config"
	"github.com/conorfennell/decksmith/internal/domain"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	cfg      config.Config
	encoder  *apkg.Encoder
	decoder  apkg.Decoder
	log      *slog.Logger
	router   *http.ServeMux
	handler  http.Handler
	validate *validator.Validate
}

// NewServer creates and configures a new server.
func NewServer(cfg config.Config, encoder *apkg.Encoder, log *slog.Logger) (*Server, error) {
	policy, err := apkg.ParseNotePolicy(cfg.Import.Policy)
	if err != nil {
		return nil, err
	}
	if encoder == nil {
		encoder = apkg.NewEncoder()
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		encoder:  encoder,
		decoder:  apkg.Decoder{Policy: policy},
		log:      log,
		router:   http.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.routes()

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.Server.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         86400,
	}).Handler(s.withRequestLog(s.router))
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())
	s.router.HandleFunc("POST /api/export", s.handleExport())
	s.router.HandleFunc("POST /api/import", s.handleImport())
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with an id and logs it once served.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request served",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	}
}

// exportRequest is the body of POST /api/export.
type exportRequest struct {
	DeckName    string             `json:"deckName"`
	Description string             `json:"description"`
	Cards       []domain.Flashcard `json:"cards"`
}

// handleExport builds a package from the posted cards.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exportRequest
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUpload)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.Cards) == 0 {
			writeError(w, http.StatusBadRequest, "No cards to export")
			return
		}

		cards := make([]domain.Flashcard, 0, len(req.Cards))
		for _, card := range req.Cards {
			if err := s.validate.Struct(card); err != nil {
				continue
			}
			cards = append(cards, card)
		}
		if len(cards) == 0 {
			writeError(w, http.StatusBadRequest, "No valid cards to export")
			return
		}

		name := req.DeckName
		if name == "" {
			name = s.cfg.Deck.Name
		}
		description := req.Description
		if description == "" {
			description = s.cfg.Deck.Description
		}

		data, err := s.encoder.Encode(r.Context(), name, description, cards)
		if err != nil {
			s.log.Error("Export failed", "deck", name, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to export deck")
			return
		}

		s.log.Info("Deck exported", "deck", name, "cards", len(cards), "skipped", len(req.Cards)-len(cards))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", attachment(name))
		w.Write(data)
	}
}

// componentUnescaper restores the characters encodeURIComponent leaves alone
// but url.QueryEscape does not.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// attachment returns the Content-Disposition header for a package named
// after its deck.
func attachment(deckName string) string {
	if deckName == "" {
		deckName = "deck"
	}
	return fmt.Sprintf(`attachment; filename="%s.apkg"`, componentUnescaper.Replace(url.QueryEscape(deckName)))
}

// importResponse is the body returned by POST /api/import.
type importResponse struct {
	DeckName string         `json:"deckName"`
	Cards    []importedCard `json:"cards"`
}

type importedCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// handleImport reads an uploaded package, or a collection database already
// extracted from one, and returns its cards.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUpload)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}

		var deck domain.Deck
		var err error
		if data, ok := formFile(r, "database"); ok {
			deck, err = s.decoder.DecodeCollection(r.Context(), data)
		} else if data, ok := formFile(r, "file"); ok {
			deck, err = s.decoder.Decode(r.Context(), data)
		} else {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}

		if err != nil {
			status, msg := importErrorStatus(err)
			s.log.Warn("Import failed", "error", err, "status", status)
			writeError(w, status, msg)
			return
		}

		resp := importResponse{DeckName: deck.Name, Cards: make([]importedCard, 0, len(deck.Cards))}
		for _, c := range deck.Cards {
			resp.Cards = append(resp.Cards, importedCard{Front: c.Front, Back: c.Back})
		}
		s.log.Info("Deck imported", "deck", deck.Name, "cards", len(resp.Cards), "policy", s.decoder.Policy)
		writeJSON(w, http.StatusOK, resp)
	}
}

// formFile returns the content of a multipart file field.
func formFile(r *http.Request, field string) ([]byte, bool) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

func importErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apkg.ErrInvalidPackage):
		return http.StatusBadRequest, "Invalid .apkg file: no collection database found"
	case errors.Is(err, apkg.ErrNoCardsFound):
		return http.StatusBadRequest, "No cards found in .apkg file"
	case errors.Is(err, apkg.ErrNoCollectionData):
		return http.StatusInternalServerError, "Failed to read cards from .apkg file"
	}
	return http.StatusInternalServerError, "Failed to import .apkg file"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
