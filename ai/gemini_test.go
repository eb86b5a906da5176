package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeminiEdit(t *testing.T) {
	edited := []byte("edited-image-bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header: %s", got)
		}
		var payload geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(payload.Contents) != 1 || len(payload.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected contents shape: %+v", payload.Contents)
		}
		blob := payload.Contents[0].Parts[0].InlineData
		if blob == nil || blob.MIMEType != "image/jpeg" {
			t.Fatalf("inline data mismatch: %+v", blob)
		}
		if got := payload.Contents[0].Parts[1].Text; got != "make it a cartoon" {
			t.Fatalf("prompt mismatch: %s", got)
		}

		resp := geminiResponse{}
		resp.Candidates = []struct {
			Content geminiContent `json:"content"`
		}{{Content: geminiContent{Parts: []geminiPart{
			{Text: "here you go"},
			{InlineData: &geminiBlob{
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(edited),
			}},
		}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	g := NewGemini("test-key", testLogger())
	g.baseURL = ts.URL

	got, err := g.Edit(context.Background(), []byte("input"), "image/jpeg", "make it a cartoon")
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if string(got) != string(edited) {
		t.Fatalf("unexpected image bytes: %q", got)
	}
}

func TestGeminiEditApiError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer ts.Close()

	g := NewGemini("test-key", testLogger())
	g.baseURL = ts.URL

	_, err := g.Edit(context.Background(), []byte("input"), "image/jpeg", "prompt")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Status != 429 || !strings.Contains(provErr.Message, "quota exceeded") {
		t.Fatalf("unexpected provider error: %+v", provErr)
	}
}

func TestGeminiEditNoImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "sorry, cannot do that"}]}}]}`))
	}))
	defer ts.Close()

	g := NewGemini("test-key", testLogger())
	g.baseURL = ts.URL

	if _, err := g.Edit(context.Background(), []byte("input"), "image/jpeg", "prompt"); err == nil {
		t.Fatal("expected error when no image part returned")
	}
}
