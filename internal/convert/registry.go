// Package convert extracts plain text from uploaded documents.
//
// A [Registry] maps file extensions to [Extractor] implementations. Every
// failure is reported as a [*ConversionError] carrying a generic message that
// is safe to show to end users; the cause is logged and available through
// errors.Unwrap.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Extractor turns the raw bytes of one document format into plain text.
type Extractor interface {
	// Extensions returns the file extensions handled, with the leading dot.
	Extensions() []string
	// Extract returns the document's text.
	Extract(data []byte) (string, error)
}

// Registry dispatches documents to extractors by file extension.
//
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the given extractors registered in order.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: map[string]Extractor{}}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Default returns a registry handling plain text and Word documents.
func Default() *Registry {
	return NewRegistry(&TextExtractor{}, &DocxExtractor{})
}

// Register adds e for each of its extensions. A later registration for the
// same extension replaces the earlier one.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.byExt[normalizeExt(ext)] = e
	}
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the extractor registered for filename's extension.
func (r *Registry) Lookup(filename string) (Extractor, bool) {
	ext := normalizeExt(filepath.Ext(filename))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byExt[ext]
	return e, ok
}

// Convert reads the document from rd and returns its text, choosing the
// extractor from filename's extension.
//
// The error, if any, is always a *ConversionError.
func (r *Registry) Convert(ctx context.Context, filename string, rd io.Reader) (string, error) {
	e, ok := r.Lookup(filename)
	if !ok {
		return "", &ConversionError{Message: MsgUnsupportedFormat, err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))}
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", failed(ctx, filename, fmt.Errorf("failed to read upload: %w", err))
	}
	text, err := extract(e, data)
	if err != nil {
		return "", failed(ctx, filename, err)
	}
	return text, nil
}

// extract runs e, turning a panic into an error.
func extract(e Extractor, data []byte) (text string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("extractor %T panicked: %v", e, v)
		}
	}()
	return e.Extract(data)
}

func failed(ctx context.Context, filename string, err error) *ConversionError {
	slog.WarnContext(ctx, "convert: extraction failed", "file", filename, "err", err)
	return &ConversionError{Message: MsgConversionFailed, err: err}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
