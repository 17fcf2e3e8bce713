package document

import (
	"fmt"
	"io"
	"math"
	"strings"

	rpdf "rsc.io/pdf"
)

type pdfSource struct {
	reader *rpdf.Reader
}

// OpenPDF 打开 PDF 文件；解析器遇到损坏文件可能 panic，这里统一转为错误。
func OpenPDF(r io.ReaderAt, size int64) (src PageSource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := rpdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfSource{reader: reader}, nil
}

func (p *pdfSource) NumPages() int {
	return p.reader.NumPage()
}

// PageText 返回第 n 页（从 1 开始）的文本，同一基线上的字形拼成一行。
func (p *pdfSource) PageText(n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf page %d: %v", n, rec)
		}
	}()

	page := p.reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf page %d not found", n)
	}

	var builder strings.Builder
	lastY := math.NaN()
	for _, glyph := range page.Content().Text {
		if !math.IsNaN(lastY) && math.Abs(glyph.Y-lastY) > 1 {
			builder.WriteByte('\n')
		}
		builder.WriteString(glyph.S)
		lastY = glyph.Y
	}
	return builder.String(), nil
}
