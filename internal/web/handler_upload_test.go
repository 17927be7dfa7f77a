package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/vbonduro/ingredia/internal/service"
	"github.com/vbonduro/ingredia/internal/spreadsheet"
)

func TestAllowedImageMIME(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantMIME     string
		wantDetected bool
	}{
		{
			name:         "JPEG",
			data:         []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "PNG",
			data:         []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			wantMIME:     "image/png",
			wantDetected: true,
		},
		{
			name:         "GIF rejected",
			data:         []byte("GIF89a"),
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "WebP rejected",
			data:         append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 10)...),
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "PDF disguised as image",
			data:         []byte("%PDF-1.4 malicious content"),
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "empty",
			data:         []byte{},
			wantMIME:     "",
			wantDetected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMIME, gotDetected := AllowedImageMIME(tt.data)
			if gotDetected != tt.wantDetected {
				t.Errorf("AllowedImageMIME() detected = %v, want %v", gotDetected, tt.wantDetected)
			}
			if gotMIME != tt.wantMIME {
				t.Errorf("AllowedImageMIME() mimeType = %q, want %q", gotMIME, tt.wantMIME)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound},
		{"invalid question", fmt.Errorf("%w: question is empty", service.ErrInvalidQuestion), http.StatusBadRequest},
		{"invalid image", service.ErrInvalidImage, http.StatusBadRequest},
		{"missing spreadsheet", fmt.Errorf("load: %w", spreadsheet.ErrFileNotFound), http.StatusInternalServerError},
		{"model failure", fmt.Errorf("answer: %w: %w", service.ErrModel, errors.New("503")), http.StatusBadGateway},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
