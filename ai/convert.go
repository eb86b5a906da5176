package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"golang.org/x/image/webp"
)

// toPNG re-encodes an image as PNG. The OpenAI edits endpoint accepts
// PNG only, while Telegram delivers photos as JPEG and stickers or
// documents may arrive as WebP.
func toPNG(data []byte, mimeType string) ([]byte, error) {
	if mimeType == "image/png" {
		return data, nil
	}

	var (
		img image.Image
		err error
	)
	switch mimeType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", mimeType, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
