package models

// Inbound webhook payload shapes for the LINE Messaging API.

type WebhookPayload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string        `json:"type"` // message, follow, unfollow, postback
	Timestamp  int64         `json:"timestamp"`
	ReplyToken string        `json:"replyToken,omitempty"`
	Source     EventSource   `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
	Postback   *Postback     `json:"postback,omitempty"`
}

type EventSource struct {
	Type   string `json:"type"` // user, group, room
	UserID string `json:"userId"`
}

type EventMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // text, image, sticker, ...
	Text      string `json:"text,omitempty"`
	StickerID string `json:"stickerId,omitempty"`
	PackageID string `json:"packageId,omitempty"`
}

type Postback struct {
	Data string `json:"data"`
}
