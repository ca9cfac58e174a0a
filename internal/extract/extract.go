package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"lexscan-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

// Extraction failures are the user's problem, not the system's: the same
// bytes will always fail, so callers must treat these as non-retryable.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("corrupt file")
)

// Text converts an uploaded payload into normalized plain text.
// PDF inputs are decoded with github.com/ledongthuc/pdf; text inputs must be
// valid UTF-8. Runs of blank lines collapse to single newlines.
func Text(data []byte, mimeType string, fileName string) (string, error) {
	switch normalizeMimeType(mimeType, fileName) {
	case mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		return normalize(text), nil
	case mimeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: not valid UTF-8", ErrCorruptFile)
		}
		return normalize(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

// FromStore loads a stored object and extracts its text.
func FromStore(ctx context.Context, store object.ObjectStore, storageKey, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract open key=%s: %w", storageKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract read key=%s: %w", storageKey, err)
	}
	return Text(raw, mimeType, fileName)
}

// Retryable reports whether an extraction error could succeed on retry.
// It never can.
func Retryable(err error) bool {
	_ = err
	return false
}

func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalize trims trailing space per line and collapses runs of blank lines.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func normalizeMimeType(mimeType string, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeText:
		return clean
	case "", "application/octet-stream":
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return mimePDF
		case ".txt", ".text", ".md":
			return mimeText
		}
	}
	return clean
}
