// Package loader extracts per-page text from a source document.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/docqa/model"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Load reads the document at path and returns it with its ordered,
// 1-indexed pages and a sha256 content hash. Loading is read-only and
// idempotent, the same file always produces the same pages and hash.
// It returns a NotFoundError for a missing path and an UnreadableError
// when the content cannot be parsed.
func Load(path string) (*model.Document, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &model.NotFoundError{Path: path}
	}

	var pages []model.Page
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err = loadPDF(path)
	case ".txt", ".md":
		pages, err = loadText(path)
	default:
		return nil, &model.UnreadableError{Path: path, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, &model.UnreadableError{Path: path, Err: err}
	}

	contentHash, err := hashFile(path)
	if err != nil {
		return nil, &model.UnreadableError{Path: path, Err: err}
	}

	filename := filepath.Base(path)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if title == "" {
		title = filename
	}

	return &model.Document{
		Title:       title,
		Source:      path,
		ContentHash: contentHash,
		PageCount:   len(pages),
		Pages:       pages,
		Metadata: model.Metadata{
			"file_name":  filename,
			"page_count": len(pages),
		},
	}, nil
}

func loadPDF(path string) ([]model.Page, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]model.Page, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			pages = append(pages, model.Page{Number: pageNum, Text: ""})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", pageNum, err)
		}

		pages = append(pages, model.Page{Number: pageNum, Text: CleanText(text)})
	}

	return pages, nil
}

// loadText treats form feeds as page breaks so plain text exports of
// paginated documents keep their page provenance.
func loadText(path string) ([]model.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	rawPages := strings.Split(string(content), "\f")
	pages := make([]model.Page, 0, len(rawPages))
	for i, raw := range rawPages {
		pages = append(pages, model.Page{Number: i + 1, Text: CleanText(raw)})
	}

	return pages, nil
}

// CleanText collapses runs of whitespace into single spaces. Extracted
// PDF text is full of layout artifacts that would otherwise end up in
// chunks and prompts.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func hashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
