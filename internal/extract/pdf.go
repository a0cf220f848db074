// Package extract turns uploaded PDF bytes into ordered page texts.
package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Pages parses PDF bytes and returns the extracted text of every page in
// order, index 0 holding page 1. Pages that fail text extraction come back
// as empty strings so callers can keep page numbering intact; a document
// that cannot be parsed at all is an error.
func Pages(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(r, i))
	}
	return pages, nil
}

func pageText(r *pdf.Reader, num int) (text string) {
	// The pdf library panics on some malformed content streams; a broken
	// page degrades to empty text instead of failing the whole document.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return ""
	}
	txt, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return txt
}
