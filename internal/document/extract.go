package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrNoText = errors.New("no readable text found in document")

// Extracted 是从上传文件中取得的纯文本内容。
type Extracted struct {
	Text      string `json:"-"`
	PageCount int    `json:"pageCount"`
}

// PageSource 按页提供文本，PDF 读取器实现该接口。
type PageSource interface {
	NumPages() int
	PageText(n int) (string, error)
}

// Extract 根据文件扩展名选择解析器并返回文档文本。
func Extract(filename string, data []byte) (Extracted, error) {
	kind, err := Validate(filename, int64(len(data)), int64(len(data)))
	if err != nil {
		return Extracted{}, err
	}

	switch kind {
	case KindText:
		return extractPlainText(data)
	case KindDOCX:
		return extractDOCX(data)
	case KindPDF:
		src, err := OpenPDF(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return Extracted{}, err
		}
		return ReadPages(src)
	default:
		return Extracted{}, ErrUnsupportedType
	}
}

// ReadPages 依次读取每一页，页与页之间以空行分隔。单页读取失败时跳过该页。
func ReadPages(src PageSource) (Extracted, error) {
	total := src.NumPages()
	if total <= 0 {
		return Extracted{}, ErrNoText
	}

	var builder strings.Builder
	for n := 1; n <= total; n++ {
		text, err := src.PageText(n)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	return Extracted{Text: builder.String(), PageCount: total}, nil
}

func extractPlainText(data []byte) (Extracted, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return Extracted{}, fmt.Errorf("text file is not valid UTF-8")
	}
	return Extracted{Text: string(data), PageCount: 1}, nil
}
