package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/decksmith/internal/apkg"
	"github.com/conorfennell/decksmith/internal/config"
	"github.com/conorfennell/decksmith/internal/domain"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "deck.apkg")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func samplePackage(t *testing.T) []byte {
	t.Helper()
	data, err := apkg.Export(context.Background(), "Spanish", "", []domain.Flashcard{
		{Front: "hola", Back: "hello"},
		{Front: "adiós", Back: "goodbye"},
	})
	require.NoError(t, err)
	return data
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"deckName":"Spanish","cards":[{"front":"hola","back":"hello"},{"front":"","back":"skipped"}]}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Spanish.apkg"`, rec.Header().Get("Content-Disposition"))

	name, cards, err := apkg.Import(context.Background(), rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Spanish", name)
	assert.Equal(t, []domain.Flashcard{{Front: "hola", Back: "hello"}}, cards)
}

func TestExportDefaultsDeckName(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Deck.Name = "Vocab Deck" })

	body := `{"cards":[{"front":"hola","back":"hello"}]}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Vocab%20Deck.apkg"`, rec.Header().Get("Content-Disposition"))

	name, _, err := apkg.Import(context.Background(), rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Vocab Deck", name)
}

func TestAttachment(t *testing.T) {
	testCases := []struct {
		name     string
		deckName string
		expected string
	}{
		{name: "plain", deckName: "Spanish", expected: `attachment; filename="Spanish.apkg"`},
		{name: "space", deckName: "My Deck", expected: `attachment; filename="My%20Deck.apkg"`},
		{name: "reserved characters", deckName: "a;b,c&d=e+f@g:h$i/j?k#", expected: `attachment; filename="a%3Bb%2Cc%26d%3De%2Bf%40g%3Ah%24i%2Fj%3Fk%23.apkg"`},
		{name: "quote", deckName: `say "hi"`, expected: `attachment; filename="say%20%22hi%22.apkg"`},
		{name: "unreserved marks", deckName: "it's (fun)!*~-_.", expected: `attachment; filename="it's%20(fun)!*~-_..apkg"`},
		{name: "non-ascii", deckName: "Español", expected: `attachment; filename="Espa%C3%B1ol.apkg"`},
		{name: "empty", deckName: "", expected: `attachment; filename="deck.apkg"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, attachment(tc.deckName))
		})
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"cards":`, "Invalid request body"},
		{"no cards", `{"deckName":"x","cards":[]}`, "No cards to export"},
		{"no valid cards", `{"cards":[{"front":"only front"},{"back":"only back"}]}`, "No valid cards to export"},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp["error"])
		})
	}
}

func TestImport(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartBody(t, "file", samplePackage(t))
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Spanish", resp.DeckName)
	assert.Equal(t, []importedCard{
		{Front: "hola", Back: "hello"},
		{Front: "adiós", Back: "goodbye"},
	}, resp.Cards)
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		data   []byte
		status int
	}{
		{"not a zip", "file", []byte("not a zip"), http.StatusBadRequest},
		{"not a database", "database", []byte("not a database"), http.StatusInternalServerError},
		{"wrong field", "upload", samplePackage(t), http.StatusBadRequest},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, tt.data)
			req := httptest.NewRequest(http.MethodPost, "/api/import", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestImportWithoutMultipart(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("{}")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file provided")
}

func TestImportUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxUpload = 64 })

	body, contentType := multipartBody(t, "file", samplePackage(t))
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.Origins = []string{"https://app.example.com"} })

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/export", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestNewServerRejectsPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Import.Policy = "neither"

	_, err := NewServer(cfg, nil, nil)
	assert.Error(t, err)
}
