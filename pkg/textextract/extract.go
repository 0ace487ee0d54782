// Package textextract pulls plain text out of uploaded files so the
// preparation endpoint can chunk them. PDF parsing rides
// github.com/ledongthuc/pdf; DOCX is unzipped and de-tagged directly.
package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Result is the extracted text plus the page count where the format
// has one.
type Result struct {
	Text  string
	Pages int
}

// ErrUnsupported reports a file format no extractor handles.
type ErrUnsupported struct {
	Kind string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.Kind)
}

// Extract reads text from data according to kind, which may be a file
// extension, a MIME type, or a bare format name.
func Extract(data io.ReaderAt, size int64, kind string) (*Result, error) {
	switch normalizeKind(kind) {
	case "pdf":
		return extractPDF(data, size)
	case "docx":
		return extractDOCX(data, size)
	case "txt":
		return extractTXT(data, size)
	default:
		return nil, &ErrUnsupported{Kind: kind}
	}
}

// DetectKind picks the extraction format from the filename extension,
// falling back to the declared MIME type when the extension says
// nothing.
func DetectKind(filename, mimeType string) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return ext
	}
	return mimeType
}

func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if i := strings.IndexByte(kind, ';'); i >= 0 {
		kind = strings.TrimSpace(kind[:i])
	}
	switch kind {
	case "pdf", ".pdf", "application/pdf":
		return "pdf"
	case "docx", ".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "txt", ".txt", "text", "text/plain", "text/markdown", "md", ".md":
		return "txt"
	default:
		return ""
	}
}

func extractPDF(data io.ReaderAt, size int64) (*Result, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	var text strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not void the rest.
			continue
		}
		text.WriteString(content)
		text.WriteString("\n")
	}

	return &Result{Text: strings.TrimSpace(text.String()), Pages: pages}, nil
}

func extractDOCX(data io.ReaderAt, size int64) (*Result, error) {
	archive, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	for _, f := range archive.File {
		if path.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return &Result{Text: flattenXML(string(raw)), Pages: 1}, nil
	}
	return nil, fmt.Errorf("open docx: no document.xml in archive")
}

func extractTXT(data io.ReaderAt, size int64) (*Result, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read txt: %w", err)
	}
	return &Result{Text: string(bytes.TrimSpace(buf)), Pages: 1}, nil
}

// flattenXML drops markup and collapses runs of whitespace, which is
// enough structure recovery for chunking word-processing XML.
func flattenXML(s string) string {
	var out strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			out.WriteRune(' ')
		case !inTag:
			out.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}
