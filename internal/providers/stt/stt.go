package stt

import (
	"context"
	"encoding/base64"
	"strings"
)

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

// DecodeAudio accepts plain or data-URL base64 audio as sent by the voice pipeline.
func DecodeAudio(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if i := strings.Index(b64, ";base64,"); i >= 0 {
		b64 = b64[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(b64)
}
