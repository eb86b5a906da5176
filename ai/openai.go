package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"Tasmeem/lib/sl"
)

const (
	openAIEditsURL = "https://api.openai.com/v1/images/edits"
	openAIModel    = "gpt-image-1"
)

// OpenAI edits photos through the images/edits endpoint. The endpoint
// takes multipart form data and only accepts PNG input, so every image
// is converted before submission.
type OpenAI struct {
	apiKey   string
	model    string
	editsURL string
	client   *http.Client
	log      *slog.Logger
}

func NewOpenAI(apiKey string, log *slog.Logger) *OpenAI {
	return &OpenAI{
		apiKey:   apiKey,
		model:    openAIModel,
		editsURL: openAIEditsURL,
		client:   &http.Client{Timeout: 3 * time.Minute},
		log:      log.With(sl.Module("openai")),
	}
}

// ImageEditResponse represents the response from the images/edits API
type ImageEditResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
	Error   *Error      `json:"error"`
}

// ImageData represents a single edited image
type ImageData struct {
	URL     string `json:"url"`
	B64JSON string `json:"b64_json"`
}

type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (o *OpenAI) Edit(ctx context.Context, image []byte, mimeType string, prompt string) ([]byte, error) {
	pngImage, err := toPNG(image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("preparing image: %w", err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("model", o.model); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if _, err := part.Write(pngImage); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.editsURL, &form)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Message: err.Error()}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			o.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var parsed ImageEditResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{
			Provider: "openai",
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("malformed response: %v", err),
		}
	}
	if parsed.Error != nil {
		return nil, &ProviderError{
			Provider: "openai",
			Status:   resp.StatusCode,
			Message:  parsed.Error.Message,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: "openai",
			Status:   resp.StatusCode,
			Message:  string(body),
		}
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return nil, &ProviderError{Provider: "openai", Message: "no image in response"}
	}

	edited, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, &ProviderError{
			Provider: "openai",
			Message:  fmt.Sprintf("decoding image data: %v", err),
		}
	}

	o.log.With(
		slog.Int("in_bytes", len(image)),
		slog.Int("out_bytes", len(edited)),
		slog.Duration("took", time.Since(start)),
	).Info("image edited")

	return edited, nil
}

var _ Gateway = (*OpenAI)(nil)
