package template

import "encoding/json"

// Message kinds form a closed set. A template's Content payload must match
// the shape declared by its kind or rendering falls back (see renderer).
const (
	KindText       = "text"
	KindSticker    = "sticker"
	KindImage      = "image"
	KindVideo      = "video"
	KindAudio      = "audio"
	KindLocation   = "location"
	KindButtons    = "buttons"
	KindQuickReply = "quick_reply"
)

var knownKinds = map[string]bool{
	KindText:       true,
	KindSticker:    true,
	KindImage:      true,
	KindVideo:      true,
	KindAudio:      true,
	KindLocation:   true,
	KindButtons:    true,
	KindQuickReply: true,
}

func KnownKind(kind string) bool {
	return knownKinds[kind]
}

// TextContent backs both the text and quick_reply kinds. QuickReply is
// optional for text and required non-empty for quick_reply.
type TextContent struct {
	Text       string            `json:"text"`
	QuickReply *QuickReplyOption `json:"quick_reply,omitempty"`
}

type StickerContent struct {
	PackageID string `json:"package_id"`
	StickerID string `json:"sticker_id"`
}

// MediaContent backs image and video.
type MediaContent struct {
	OriginalContentURL string `json:"original_content_url"`
	PreviewImageURL    string `json:"preview_image_url"`
}

type AudioContent struct {
	OriginalContentURL string `json:"original_content_url"`
	Duration           int    `json:"duration"` // milliseconds
}

type LocationContent struct {
	Title     string  `json:"title"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ButtonsContent struct {
	Title        string         `json:"title,omitempty"`
	Text         string         `json:"text"`
	ThumbnailURL string         `json:"thumbnail_image_url,omitempty"`
	Actions      []OptionAction `json:"actions"`
}

type QuickReplyOption struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Action OptionAction `json:"action"`
}

// OptionAction is a button or quick-reply action. Type is one of
// message, postback or uri; builders skip options with other types.
type OptionAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text,omitempty"`
	Data  string `json:"data,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// PrimaryText extracts the main user-visible text of a content payload for
// relevance scoring. Malformed payloads score as empty rather than failing
// the whole selection.
func PrimaryText(kind string, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	switch kind {
	case KindText, KindQuickReply:
		var c TextContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return ""
		}
		return c.Text
	case KindButtons:
		var c ButtonsContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return ""
		}
		return c.Text
	case KindLocation:
		var c LocationContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return ""
		}
		return c.Title
	default:
		return ""
	}
}
