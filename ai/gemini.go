package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"Tasmeem/lib/sl"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel   = "gemini-2.5-flash-image"
)

// Gemini edits photos through the generateContent endpoint with inline
// image data. The REST API is used directly; the official SDK does not
// cover image output for this model family.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func NewGemini(apiKey string, log *slog.Logger) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   geminiModel,
		baseURL: geminiBaseURL,
		// image generation routinely takes tens of seconds
		client: &http.Client{Timeout: 3 * time.Minute},
		log:    log.With(sl.Module("gemini")),
	}
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Edit(ctx context.Context, image []byte, mimeType string, prompt string) ([]byte, error) {
	request := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiBlob{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: err.Error()}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			g.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{
			Provider: "gemini",
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("malformed response: %v", err),
		}
	}
	if parsed.Error != nil {
		return nil, &ProviderError{
			Provider: "gemini",
			Status:   parsed.Error.Code,
			Message:  parsed.Error.Message,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: "gemini",
			Status:   resp.StatusCode,
			Message:  string(body),
		}
	}

	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			edited, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, &ProviderError{
					Provider: "gemini",
					Message:  fmt.Sprintf("decoding image data: %v", err),
				}
			}
			g.log.With(
				slog.Int("in_bytes", len(image)),
				slog.Int("out_bytes", len(edited)),
				slog.Duration("took", time.Since(start)),
			).Info("image edited")
			return edited, nil
		}
	}

	return nil, &ProviderError{Provider: "gemini", Message: "no image in response"}
}

var _ Gateway = (*Gemini)(nil)
