package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestOpenAIEditConvertsToPNG(t *testing.T) {
	edited := []byte("edited-image-bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("prompt"); got != "oil painting" {
			t.Fatalf("prompt mismatch: %s", got)
		}
		if got := r.FormValue("model"); got != "gpt-image-1" {
			t.Fatalf("model mismatch: %s", got)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("missing image file: %v", err)
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("reading image file: %v", err)
		}
		// the jpeg input must arrive re-encoded as png
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Fatalf("submitted image is not png: %v", err)
		}

		_, _ = w.Write([]byte(`{"created": 1, "data": [{"b64_json": "` +
			base64.StdEncoding.EncodeToString(edited) + `"}]}`))
	}))
	defer ts.Close()

	o := NewOpenAI("test-key", testLogger())
	o.editsURL = ts.URL

	got, err := o.Edit(context.Background(), testJPEG(t), "image/jpeg", "oil painting")
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if string(got) != string(edited) {
		t.Fatalf("unexpected image bytes: %q", got)
	}
}

func TestOpenAIEditApiError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "image too large", "type": "invalid_request_error"}}`))
	}))
	defer ts.Close()

	o := NewOpenAI("test-key", testLogger())
	o.editsURL = ts.URL

	_, err := o.Edit(context.Background(), testJPEG(t), "image/jpeg", "prompt")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(provErr.Message, "image too large") {
		t.Fatalf("unexpected provider error: %+v", provErr)
	}
}

func TestOpenAIEditEmptyData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"created": 1, "data": []}`))
	}))
	defer ts.Close()

	o := NewOpenAI("test-key", testLogger())
	o.editsURL = ts.URL

	if _, err := o.Edit(context.Background(), testJPEG(t), "image/jpeg", "prompt"); err == nil {
		t.Fatal("expected error on empty data")
	}
}
