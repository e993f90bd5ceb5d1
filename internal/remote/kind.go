package remote

// Kind classifies a remote message payload. Classification happens
// exactly once, at ingestion; downstream code only ever sees the
// rendered content string.
type Kind int

const (
	KindText Kind = iota
	KindPhoto
	KindVideo
	KindDocument
	KindSticker
	KindVoice
	KindGIF
	KindAudio
	KindUnknown
)

// Tag returns the bracketed placeholder stored for non-text payloads.
func (k Kind) Tag() string {
	switch k {
	case KindPhoto:
		return "[Photo]"
	case KindVideo:
		return "[Video]"
	case KindDocument:
		return "[Document]"
	case KindSticker:
		return "[Sticker]"
	case KindVoice:
		return "[Voice]"
	case KindGIF:
		return "[GIF]"
	case KindAudio:
		return "[Audio]"
	}
	return "[Unknown]"
}

// Render produces the content string persisted for a message: its text
// when present, otherwise the kind's placeholder tag.
func Render(text string, k Kind) string {
	if text != "" {
		return text
	}
	if k == KindText {
		// Text payload with empty body; nothing better to show.
		return ""
	}
	return k.Tag()
}
