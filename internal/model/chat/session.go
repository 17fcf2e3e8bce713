package chat

import "time"

// DocumentContext holds the document a session is studying.
type DocumentContext struct {
	Name          string `json:"name"`
	RawText       string `json:"-"`
	TruncatedText string `json:"-"`
	Description   string `json:"description,omitempty"`
	PageCount     int    `json:"pageCount"`
	// LibraryID 非空表示文档来自内置文档库。
	LibraryID string `json:"libraryId,omitempty"`
}

// Session captures a transient anonymous study session over one document.
type Session struct {
	ID           string          `json:"id"`
	DocumentName string          `json:"documentName"`
	CreatedAt    time.Time       `json:"createdAt"`
	Document     DocumentContext `json:"document"`
}
