// Package renderer translates stored template content into LINE wire
// messages. Builders are pure; a malformed payload never blocks dispatch.
package renderer

import (
	"encoding/json"
	"errors"
	"fmt"

	"assistant-gateway/internal/line"
	"assistant-gateway/internal/template"
)

// ErrUnknownMessageKind is returned for kinds outside the closed set.
var ErrUnknownMessageKind = errors.New("unknown message kind")

// MalformedContentError reports a payload that does not satisfy its
// declared kind. Build still returns a sendable fallback message alongside
// it so the caller can log the failure without dropping the response.
type MalformedContentError struct {
	Kind string
	Err  error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed %s content: %v", e.Kind, e.Err)
}

func (e *MalformedContentError) Unwrap() error {
	return e.Err
}

// fallbackText is what the user sees when a stored template turns out to
// be broken. Something generic beats no answer at all.
const fallbackText = "Sorry, something went wrong preparing this reply. Please try again."

type builderFunc func(raw []byte) (line.Message, error)

var builders = map[string]builderFunc{
	template.KindText:       buildText,
	template.KindQuickReply: buildQuickReplyText,
	template.KindSticker:    buildSticker,
	template.KindImage:      buildImage,
	template.KindVideo:      buildVideo,
	template.KindAudio:      buildAudio,
	template.KindLocation:   buildLocation,
	template.KindButtons:    buildButtons,
}

// Build renders a content payload for its declared kind. An unknown kind is
// a hard error. A recognized kind with a bad payload returns the diagnostic
// fallback message together with a *MalformedContentError; the message is
// always sendable in that case.
func Build(kind string, raw []byte) (line.Message, error) {
	builder, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageKind, kind)
	}
	msg, err := builder(raw)
	if err != nil {
		return line.NewTextMessage(fallbackText), &MalformedContentError{Kind: kind, Err: err}
	}
	return msg, nil
}

func buildText(raw []byte) (line.Message, error) {
	var content template.TextContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.Text == "" {
		return nil, errors.New("missing text body")
	}
	msg := line.NewTextMessage(content.Text)
	msg.QuickReply = buildQuickReply(content.QuickReply)
	return msg, nil
}

// buildQuickReplyText is buildText plus the requirement that at least one
// usable quick-reply option survives.
func buildQuickReplyText(raw []byte) (line.Message, error) {
	var content template.TextContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.Text == "" {
		return nil, errors.New("missing text body")
	}
	quickReply := buildQuickReply(content.QuickReply)
	if quickReply == nil {
		return nil, errors.New("no usable quick-reply options")
	}
	msg := line.NewTextMessage(content.Text)
	msg.QuickReply = quickReply
	return msg, nil
}

func buildSticker(raw []byte) (line.Message, error) {
	var content template.StickerContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.PackageID == "" || content.StickerID == "" {
		return nil, errors.New("missing sticker package or id")
	}
	return line.StickerMessage{Type: "sticker", PackageID: content.PackageID, StickerID: content.StickerID}, nil
}

func buildImage(raw []byte) (line.Message, error) {
	var content template.MediaContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.OriginalContentURL == "" {
		return nil, errors.New("missing original content url")
	}
	preview := content.PreviewImageURL
	if preview == "" {
		preview = content.OriginalContentURL
	}
	return line.ImageMessage{Type: "image", OriginalContentURL: content.OriginalContentURL, PreviewImageURL: preview}, nil
}

func buildVideo(raw []byte) (line.Message, error) {
	var content template.MediaContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.OriginalContentURL == "" || content.PreviewImageURL == "" {
		return nil, errors.New("missing video or preview url")
	}
	return line.VideoMessage{Type: "video", OriginalContentURL: content.OriginalContentURL, PreviewImageURL: content.PreviewImageURL}, nil
}

func buildAudio(raw []byte) (line.Message, error) {
	var content template.AudioContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.OriginalContentURL == "" {
		return nil, errors.New("missing audio url")
	}
	duration := content.Duration
	if duration <= 0 {
		duration = 1000
	}
	return line.AudioMessage{Type: "audio", OriginalContentURL: content.OriginalContentURL, Duration: duration}, nil
}

func buildLocation(raw []byte) (line.Message, error) {
	var content template.LocationContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.Address == "" {
		return nil, errors.New("missing address")
	}
	title := content.Title
	if title == "" {
		title = "Location"
	}
	return line.LocationMessage{
		Type:      "location",
		Title:     title,
		Address:   content.Address,
		Latitude:  content.Latitude,
		Longitude: content.Longitude,
	}, nil
}

func buildButtons(raw []byte) (line.Message, error) {
	var content template.ButtonsContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, err
	}
	if content.Text == "" {
		return nil, errors.New("missing card text")
	}
	actions := make([]line.Action, 0, len(content.Actions))
	for _, option := range content.Actions {
		if action, ok := convertAction(option); ok {
			actions = append(actions, action)
		}
	}
	if len(actions) == 0 {
		return nil, errors.New("no usable actions")
	}
	return line.TemplateMessage{
		Type:    "template",
		AltText: content.Text,
		Template: line.ButtonsTemplate{
			Type:              "buttons",
			Title:             content.Title,
			Text:              content.Text,
			ThumbnailImageURL: content.ThumbnailURL,
			Actions:           actions,
		},
	}, nil
}

// buildQuickReply converts quick-reply options, skipping any option whose
// action type is unrecognized rather than rejecting the whole message.
func buildQuickReply(option *template.QuickReplyOption) *line.QuickReply {
	if option == nil || len(option.Items) == 0 {
		return nil
	}
	items := make([]line.QuickReplyButton, 0, len(option.Items))
	for _, item := range option.Items {
		if action, ok := convertAction(item.Action); ok {
			items = append(items, line.QuickReplyButton{Type: "action", Action: action})
		}
	}
	if len(items) == 0 {
		return nil
	}
	return &line.QuickReply{Items: items}
}

func convertAction(option template.OptionAction) (line.Action, bool) {
	switch option.Type {
	case "message":
		text := option.Text
		if text == "" {
			text = option.Label
		}
		return line.Action{Type: "message", Label: option.Label, Text: text}, true
	case "postback":
		if option.Data == "" {
			return line.Action{}, false
		}
		return line.Action{Type: "postback", Label: option.Label, Data: option.Data}, true
	case "uri":
		if option.URI == "" {
			return line.Action{}, false
		}
		return line.Action{Type: "uri", Label: option.Label, URI: option.URI}, true
	default:
		return line.Action{}, false
	}
}
