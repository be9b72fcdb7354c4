package render

import (
	"context"
	"testing"

	"github.com/toucan4life/gamemap/pkg/errors"
)

func TestMissingConverter(t *testing.T) {
	old := rsvgBinary
	rsvgBinary = "gamemap-no-such-rsvg-convert"
	t.Cleanup(func() { rsvgBinary = old })

	ctx := context.Background()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"pdf", func() error { _, err := ToPDF(ctx, []byte("<svg/>")); return err }},
		{"png", func() error { _, err := ToPNG(ctx, []byte("<svg/>"), 0); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}
