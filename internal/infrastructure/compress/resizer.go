package compress

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"ContractGuard/internal/ports"
)

const (
	defaultMaxSide = 2000
	defaultQuality = 75
)

// Resizer downsizes page photos before upload so that the long side is at
// most MaxSide. Pages are processed one at a time.
type Resizer struct {
	outputDir string
	logger    *slog.Logger
}

var _ ports.Compressor = (*Resizer)(nil)

// NewResizer writes results to outputDir, or to a temp directory when empty.
func NewResizer(outputDir string, logger *slog.Logger) *Resizer {
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "contractguard")
	}
	return &Resizer{outputDir: outputDir, logger: logger}
}

// Compress returns one path per input. A page that cannot be processed keeps
// its original path.
func (r *Resizer) Compress(ctx context.Context, paths []string, opts ports.CompressOptions) []string {
	out := make([]string, len(paths))
	copy(out, paths)

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		r.warn("compress output dir unavailable", "dir", r.outputDir, "error", err)
		return out
	}

	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		small, err := r.compressOne(p, opts)
		if err != nil {
			r.warn("compress failed, keeping original", "path", p, "error", err)
			continue
		}
		out[i] = small
	}
	return out
}

func (r *Resizer) compressOne(path string, opts ports.CompressOptions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	dst := scaleDown(src, maxSide(opts))

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format != "png" {
		format = "jpg"
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	target := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s.%s", stem, uuid.NewString()[:8], format))

	w, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	if format == "png" {
		err = png.Encode(w, dst)
	} else {
		err = jpeg.Encode(w, dst, &jpeg.Options{Quality: quality(opts)})
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("encode: %w", err)
	}

	r.debug("page compressed", "from", path, "to", target, "width", dst.Bounds().Dx(), "height", dst.Bounds().Dy())
	return target, nil
}

// scaleDown keeps the aspect ratio and never upscales.
func scaleDown(src image.Image, limit int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	long := max(w, h)
	if long <= limit {
		return src
	}
	nw := max(1, w*limit/long)
	nh := max(1, h*limit/long)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func maxSide(opts ports.CompressOptions) int {
	if opts.MaxSide <= 0 {
		return defaultMaxSide
	}
	return opts.MaxSide
}

func quality(opts ports.CompressOptions) int {
	if opts.Quality < 1 || opts.Quality > 100 {
		return defaultQuality
	}
	return opts.Quality
}

func (r *Resizer) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Resizer) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
