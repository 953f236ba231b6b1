// Package docs turns a local document file into the plain text the
// backend expects for verification and extraction.
package docs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	flowerrors "loanflow/internal/common/errors"
)

// maxDocumentBytes caps plain-text reads; OCR-sized statements stay well
// under this.
const maxDocumentBytes = 4 << 20

// Load reads path and returns its textual content. PDFs go through text
// extraction; anything else is read as-is.
func Load(path string) (string, error) {
	const op = "docs.load"

	if strings.TrimSpace(path) == "" {
		return "", flowerrors.NewValidationError(op, "no document selected")
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = loadPDF(path)
	default:
		text, err = loadText(path)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", flowerrors.NewValidationError(op, fmt.Sprintf("document %s contains no readable text", filepath.Base(path)))
	}
	return text, nil
}

func loadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", flowerrors.Wrap(flowerrors.KindValidation, "docs.load", "document could not be opened", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", path, err)
	}
	return string(raw), nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", flowerrors.Wrap(flowerrors.KindValidation, "docs.load", "pdf could not be opened", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text from %s: %w", path, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text from %s: %w", path, err)
	}
	return buf.String(), nil
}
