package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Result carries the text pulled out of an uploaded document plus a
// best-effort page count (0 when the format has no page concept).
type Result struct {
	Text      string
	PageCount int
}

// FromBytes sniffs the true file type from the content and extracts plain
// text. Supported: PDF, plain text / markdown, HTML. The declared name and
// mime type are only consulted when sniffing is inconclusive.
func FromBytes(originalName, mimeType string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("empty file: name=%s", originalName)
	}

	if isPDF(data) {
		return fromPDF(data)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	if looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm" {
		return Result{Text: stripHTML(string(data))}, nil
	}

	if mt == "application/pdf" || ext == ".pdf" {
		return Result{}, fmt.Errorf("file claims pdf but is missing the %%PDF header: name=%s", originalName)
	}

	if isProbablyText(data) || strings.HasPrefix(mt, "text/") || ext == ".txt" || ext == ".md" || ext == ".markdown" {
		return Result{Text: normalizeText(string(data))}, nil
	}

	return Result{}, fmt.Errorf("unsupported file type: name=%s ext=%s mime=%s", originalName, ext, mt)
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func looksLikeHTML(b []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(b[:minInt(len(b), 2048)])))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") ||
		(strings.Contains(head, "<html") && strings.Contains(head, "<body"))
}

func isProbablyText(b []byte) bool {
	sample := b[:minInt(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

// fromPDF extracts page by page so the caller gets a real page count and the
// chunker sees blank-line boundaries between pages.
func fromPDF(data []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("pdf reader: %w", err)
	}

	numPages := r.NumPage()
	var out strings.Builder
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unparseable pages; partial text beats none
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out.WriteString(normalizeText(text))
		if i < numPages {
			out.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return Result{}, fmt.Errorf("no text extracted from pdf (%d pages)", numPages)
	}
	return Result{Text: text, PageCount: numPages}, nil
}

var (
	tagPattern       = regexp.MustCompile(`(?s)<[^>]*>`)
	multiBlank       = regexp.MustCompile(`\n{3,}`)
	trailingLineWS   = regexp.MustCompile(`[ \t]+\n`)
	runsOfSpacesTabs = regexp.MustCompile(`[ \t]{2,}`)
)

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	return normalizeText(s)
}

// normalizeText tidies whitespace without flattening paragraph structure:
// blank-line boundaries are what the chunker splits paragraphs on.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingLineWS.ReplaceAllString(s, "\n")
	s = runsOfSpacesTabs.ReplaceAllString(s, " ")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
