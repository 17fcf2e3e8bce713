// Package markdown 把模型回复中常见的 markdown 子集转换为可直接插入页面的 HTML 片段。
//
// 只支持固定的几种语法，按顺序逐一替换；输入不会被转义，调用方需要自行处理不可信内容。
package markdown

import "regexp"

type pass struct {
	pattern     *regexp.Regexp
	replacement string
}

var renderPasses = []pass{
	{regexp.MustCompile(`\*\*(.*?)\*\*|__(.*?)__`), "<strong>${1}${2}</strong>"},
	{regexp.MustCompile(`\*(.*?)\*|_(.*?)_`), "<em>${1}${2}</em>"},
	{regexp.MustCompile(`(?m)^# (.*?)$`), "<h1>${1}</h1>"},
	{regexp.MustCompile(`(?m)^## (.*?)$`), "<h2>${1}</h2>"},
	{regexp.MustCompile(`(?m)^### (.*?)$`), "<h3>${1}</h3>"},
	{regexp.MustCompile(`(?m)^[*-] (.*?)$`), "<li>${1}</li>"},
	{regexp.MustCompile("(?s)```(.*?)```"), "<pre><code>${1}</code></pre>"},
	{regexp.MustCompile("`([^`]+)`"), "<code>${1}</code>"},
	{regexp.MustCompile(`\n`), "<br>"},
}

var (
	speechSymbols  = regexp.MustCompile("[*#`]")
	newlineRunsExp = regexp.MustCompile(`\n+`)
)

// Render 依次执行粗体、斜体、标题、列表、代码块、行内代码和换行替换。
func Render(text string) string {
	html := text
	for _, p := range renderPasses {
		html = p.pattern.ReplaceAllString(html, p.replacement)
	}
	return html
}

// StripForSpeech 去掉 markdown 标记符号并把连续换行折叠为一个空格，供语音合成使用。
func StripForSpeech(text string) string {
	cleaned := speechSymbols.ReplaceAllString(text, "")
	return newlineRunsExp.ReplaceAllString(cleaned, " ")
}
