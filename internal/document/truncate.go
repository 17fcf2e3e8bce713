package document

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTruncateLimit 文档送入模型前保留的最大字符数。
	DefaultTruncateLimit = 100000
	// TruncationMarker 被截断的文本末尾追加的标记。
	TruncationMarker = "\n\n[Content truncated due to length]"
)

// Truncate 把文本限制在 limit 个字符（rune）以内，超出部分丢弃并追加 TruncationMarker。
// limit <= 0 时使用 DefaultTruncateLimit。对已截断的结果再次调用不会改变它。
func Truncate(text string, limit int) string {
	if text == "" {
		return ""
	}
	if limit <= 0 {
		limit = DefaultTruncateLimit
	}

	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	if body, ok := strings.CutSuffix(text, TruncationMarker); ok && utf8.RuneCountInString(body) == limit {
		return text
	}

	count := 0
	for i := range text {
		if count == limit {
			return text[:i] + TruncationMarker
		}
		count++
	}
	return text
}
