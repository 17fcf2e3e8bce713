package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const docxBodyPath = "word/document.xml"

// HTML 解析器不识别 XML 自闭合标签，<w:tab/> 之类会吞掉后续兄弟节点
var selfClosingTag = regexp.MustCompile(`<([A-Za-z][\w.-]*:[\w.-]+)([^<>]*?)/>`)

func extractDOCX(data []byte) (Extracted, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, fmt.Errorf("open docx: %w", err)
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPath {
			body = f
			break
		}
	}
	if body == nil {
		return Extracted{}, fmt.Errorf("open docx: %s missing", docxBodyPath)
	}

	rc, err := body.Open()
	if err != nil {
		return Extracted{}, fmt.Errorf("open docx body: %w", err)
	}
	defer rc.Close()

	text, err := docxText(rc)
	if err != nil {
		return Extracted{}, err
	}
	return Extracted{Text: text, PageCount: 1}, nil
}

// docxText 收集 w:t 文本节点，按所属 w:p 段落换行。
func docxText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read docx body: %w", err)
	}
	raw = selfClosingTag.ReplaceAll(raw, []byte("<$1$2></$1>"))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse docx body: %w", err)
	}

	var (
		builder   strings.Builder
		paragraph *goquery.Selection
	)
	doc.Find("w\\:t").Each(func(_ int, run *goquery.Selection) {
		owner := run.Closest("w\\:p")
		if paragraph != nil && (owner.Length() == 0 || !owner.IsSelection(paragraph)) {
			builder.WriteByte('\n')
		}
		paragraph = owner
		builder.WriteString(run.Text())
	})

	return strings.TrimSpace(builder.String()), nil
}
