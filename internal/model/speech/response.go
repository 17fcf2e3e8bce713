package speech

import "time"

// Playback modes returned to the browser.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// TTSResponse 语音合成响应
type TTSResponse struct {
	SessionID string    `json:"sessionId,omitempty"`
	Mode      string    `json:"mode"`
	Voice     string    `json:"voice"`
	Text      string    `json:"text"`
	AudioData []byte    `json:"-"`
	Format    string    `json:"format,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
