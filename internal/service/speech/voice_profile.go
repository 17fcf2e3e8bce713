package speech

import (
	"strings"

	"github.com/zhouzirui/docmentor/backend/internal/model/speech"
)

// DefaultVoiceID is Rachel, a natural female voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

var voiceProfiles = []speech.Voice{
	{ID: DefaultVoiceID, Name: "Rachel", Gender: "Female"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Gender: "Female"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Gender: "Female"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Gender: "Female"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Gender: "Male"},
	{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Gender: "Male"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Gender: "Male"},
}

// Voices returns the fixed voice list in picker order.
func Voices() []speech.Voice {
	return append([]speech.Voice(nil), voiceProfiles...)
}

// NormalizeVoiceAlias 将发音人名字（不区分大小写）或 ID 映射为 ElevenLabs voice ID。
// 无法识别时返回空字符串。
func NormalizeVoiceAlias(alias string) string {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		return ""
	}

	for _, v := range voiceProfiles {
		if v.ID == trimmed || strings.EqualFold(v.Name, trimmed) {
			return v.ID
		}
	}
	return ""
}

// ResolveVoice 返回可用的 voice ID，未知或为空时回退到 fallback，再回退到 Rachel。
func ResolveVoice(alias, fallback string) string {
	if id := NormalizeVoiceAlias(alias); id != "" {
		return id
	}
	if id := NormalizeVoiceAlias(fallback); id != "" {
		return id
	}
	return DefaultVoiceID
}
