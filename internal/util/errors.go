package util

import "errors"

var (
	ErrEmptyUpload       = errors.New("empty upload")
	ErrNotPDF            = errors.New("only PDF uploads are supported")
	ErrBadPDF            = errors.New("unreadable PDF")
	ErrNoExtractableText = errors.New("no readable text found in the PDF")
	ErrEmptyQuery        = errors.New("query cannot be empty")
)
