package speech

// TTSRequest 语音合成请求
type TTSRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text"`
	Voice     string `json:"voice"` // 发音人 ID 或名字
}
