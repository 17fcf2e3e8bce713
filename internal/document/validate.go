package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes 上传文件大小上限（10MB）。
const DefaultMaxUploadBytes int64 = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type: please upload a PDF, TXT, MD or DOCX file")
	ErrLegacyDoc       = errors.New("legacy .doc files are not supported: please convert the file to .docx and try again")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
)

// Kind identifies how a document body is extracted.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
	KindDOCX Kind = "docx"
)

// Validate 检查上传文件的扩展名与大小，返回对应的提取方式。
func Validate(filename string, size, maxBytes int64) (Kind, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	kind, err := kindOf(filename)
	if err != nil {
		return "", err
	}

	if size <= 0 {
		return "", ErrEmptyFile
	}
	if size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrTooLarge, size, maxBytes)
	}
	return kind, nil
}

func kindOf(filename string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt", ".md":
		return KindText, nil
	case ".docx":
		return KindDOCX, nil
	case ".doc":
		return "", ErrLegacyDoc
	default:
		return "", ErrUnsupportedType
	}
}
