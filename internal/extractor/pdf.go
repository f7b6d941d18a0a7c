// Package extractor pulls plain text out of statement PDFs.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF opens but yields no text, which is
// typical of scanned statements.
var ErrNoText = errors.New("no text in PDF")

// ExtractText returns the text of every page of the PDF in data, pages
// separated by a blank line. Rows are rebuilt from glyph positions first;
// when that yields nothing the page and document plain-text paths are tried.
func ExtractText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("ExtractText: empty input")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ExtractText: PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ExtractText: open PDF: %w", err)
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("ExtractText: PDF has no pages")
	}

	pages := extractByRow(r, numPages)
	if totalLen(pages) == 0 {
		pages = extractByPagePlainText(r, numPages)
	}
	if totalLen(pages) == 0 {
		if plain := extractByReaderPlainText(r); plain != "" {
			pages = []string{plain}
		}
	}
	if totalLen(pages) == 0 {
		return "", fmt.Errorf("ExtractText: %w", ErrNoText)
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return pages
}

func extractByPagePlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func extractByReaderPlainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func totalLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	return n
}
