package line

// Outbound message shapes for the LINE Messaging API.

// Message is any sendable LINE message object.
type Message interface {
	MessageType() string
}

type TextMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

func (m TextMessage) MessageType() string { return m.Type }

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

type StickerMessage struct {
	Type      string `json:"type"`
	PackageID string `json:"packageId"`
	StickerID string `json:"stickerId"`
}

func (m StickerMessage) MessageType() string { return m.Type }

type ImageMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

func (m ImageMessage) MessageType() string { return m.Type }

type VideoMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

func (m VideoMessage) MessageType() string { return m.Type }

type AudioMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	Duration           int    `json:"duration"`
}

func (m AudioMessage) MessageType() string { return m.Type }

type LocationMessage struct {
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (m LocationMessage) MessageType() string { return m.Type }

// TemplateMessage carries a buttons template (structured card).
type TemplateMessage struct {
	Type     string          `json:"type"`
	AltText  string          `json:"altText"`
	Template ButtonsTemplate `json:"template"`
}

func (m TemplateMessage) MessageType() string { return m.Type }

type ButtonsTemplate struct {
	Type              string   `json:"type"`
	Title             string   `json:"title,omitempty"`
	Text              string   `json:"text"`
	ThumbnailImageURL string   `json:"thumbnailImageUrl,omitempty"`
	Actions           []Action `json:"actions"`
}

type QuickReply struct {
	Items []QuickReplyButton `json:"items"`
}

type QuickReplyButton struct {
	Type   string `json:"type"` // always "action"
	Action Action `json:"action"`
}

type Action struct {
	Type  string `json:"type"` // message, postback, uri
	Label string `json:"label"`
	Text  string `json:"text,omitempty"`
	Data  string `json:"data,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// Profile is a LINE user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}
