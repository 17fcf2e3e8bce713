package speech

// Voice 描述一个可选的 ElevenLabs 发音人。
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// Label returns the name shown in the voice picker, e.g. "Rachel (Female)".
func (v Voice) Label() string {
	return v.Name + " (" + v.Gender + ")"
}
