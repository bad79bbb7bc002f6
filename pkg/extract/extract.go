package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrFileNotFound indicates the path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrEmptyFile indicates the file exists but holds no text.
	ErrEmptyFile = errors.New("file contains no extractable text")
	// ErrUnsupportedFormat is matched by every UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileCorrupted is matched by every CorruptedError.
	ErrFileCorrupted = errors.New("file is corrupted")
)

var (
	extractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "extract",
		Name:      "duration_seconds",
		Help:      "Duration of document text extraction",
	}, []string{"format"})

	extractFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "extract",
		Name:      "failures_total",
		Help:      "Number of failed document extractions",
	}, []string{"format", "reason"})
)

// UnsupportedFormatError names the extension that cannot be parsed.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file format: file has no extension"
	}
	return fmt.Sprintf("unsupported file format: .%s", e.Ext)
}

// Is lets errors.Is match ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// CorruptedError reports a parser failure on a supported format.
type CorruptedError struct {
	Format string
	Path   string
	Err    error
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("%s file %s is corrupted: %v", e.Format, filepath.Base(e.Path), e.Err)
}

func (e *CorruptedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrFileCorrupted.
func (e *CorruptedError) Is(target error) bool {
	return target == ErrFileCorrupted
}

type readerFunc func(e *Extractor, path string) (string, error)

var readers = map[string]readerFunc{
	"docx": (*Extractor).readDocx,
	"pdf":  (*Extractor).readPDF,
	"pptx": (*Extractor).readPptx,
	"ppt":  (*Extractor).readPptx,
	"txt":  (*Extractor).readText,
	"xlsx": (*Extractor).readXlsx,
}

// NormalizeFormat lowercases an extension and strips the leading dot.
func NormalizeFormat(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// Extractor turns documents on disk into plain UTF-8 text.
type Extractor struct {
	logger zerolog.Logger
}

// New constructs an extractor.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "extractor").Logger()}
}

// Extract reads the file at path. The format comes from hint when given,
// otherwise from the file extension.
func (e *Extractor) Extract(ctx context.Context, path string, hint string) (string, error) {
	format := NormalizeFormat(hint)
	if format == "" {
		format = NormalizeFormat(filepath.Ext(path))
	}

	read, ok := readers[format]
	if !ok {
		extractFailures.WithLabelValues("unknown", "unsupported").Inc()
		return "", &UnsupportedFormatError{Ext: format}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			extractFailures.WithLabelValues(format, "not_found").Inc()
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		extractFailures.WithLabelValues(format, "not_found").Inc()
		return "", fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	if info.Size() == 0 {
		extractFailures.WithLabelValues(format, "empty").Inc()
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := read(e, path)
	extractDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	if err != nil {
		reason := "corrupted"
		if errors.Is(err, ErrEmptyFile) {
			reason = "empty"
		}
		extractFailures.WithLabelValues(format, reason).Inc()
		return "", err
	}

	text = strings.ToValidUTF8(strings.TrimSpace(text), "")
	if text == "" {
		extractFailures.WithLabelValues(format, "empty").Inc()
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	e.logger.Debug().Str("format", format).Int("chars", len([]rune(text))).Msg("document extracted")
	return text, nil
}

func corrupted(format, path string, err error) error {
	return &CorruptedError{Format: format, Path: path, Err: err}
}
