package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
)

const (
	// NoDocumentContent 会话缺少文档正文时嵌入指令的占位文本。
	NoDocumentContent = "No document content available."

	// DescribeInstruction 文档摘要使用的固定指令。
	DescribeInstruction = "You are an intelligent document analyzer. Read the document carefully and provide a very concise 2-3 sentence summary of what it's about. Be specific about the document's main topic and purpose."

	describeRequestPrefix = "Please read this document and provide a brief description of what it's about: \n\n"

	// CaptureDefaultQuestion is sent with a screenshot when the user typed nothing.
	CaptureDefaultQuestion = "Please analyze this screenshot:"
)

var tutorRules = []string{
	"Always refer to the document content above",
	"Be specific and cite relevant parts of the document",
	"Keep answers concise but informative",
	"Use bullet points when appropriate",
	"Format important headings and key points using **bold text**",
	"Use markdown formatting for better readability (e.g., **bold**, *italic*, # headers, - bullet points)",
}

// TutorInstruction builds the system instruction that embeds the document.
func TutorInstruction(doc chat.DocumentContext) string {
	content := doc.TruncatedText
	if strings.TrimSpace(content) == "" {
		content = NoDocumentContent
	}

	var builder strings.Builder
	builder.WriteString("You are an intelligent document tutor. Here is the document content you should remember and use to answer questions:\n\n")
	builder.WriteString(content)
	if doc.Description != "" {
		builder.WriteString("\n\nDocument summary: ")
		builder.WriteString(doc.Description)
	}
	builder.WriteString("\n\nWhen answering questions:")
	for i, rule := range tutorRules {
		builder.WriteString(fmt.Sprintf("\n%d. %s", i+1, rule))
	}
	return builder.String()
}

// DescribeRequest 构造摘要请求的用户消息文本。
func DescribeRequest(truncated string) string {
	return describeRequestPrefix + truncated
}

// SelectionPrompt formats a highlighted passage as a question.
func SelectionPrompt(text string) string {
	return "Please explain this text: \"" + text + "\""
}
