package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// convertHEIC converts a HEIC/HEIF poster to PNG next to the input file.
// converter: "heif-convert" | "magick" | "sips"
func convertHEIC(ctx context.Context, r Runner, logger *slog.Logger, converter, in string) (string, error) {
	out := filepath.Join(filepath.Dir(in), "converted.png")

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", fmt.Errorf("HEIC posters need a converter: set HEIC_CONVERTER to heif-convert | magick | sips")
	}
	if _, errb, err := r.Run(ctx, logger, converter, args...); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", converter, err, truncate(string(errb), 512))
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return out, nil
}
