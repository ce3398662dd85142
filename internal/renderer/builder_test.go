package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-gateway/internal/line"
	"assistant-gateway/internal/template"
)

func TestBuildText(t *testing.T) {
	msg, err := Build(template.KindText, []byte(`{"text":"hello there"}`))
	require.NoError(t, err)

	text, ok := msg.(line.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "hello there", text.Text)
	assert.Nil(t, text.QuickReply)
}

func TestBuildTextWithOptionalQuickReply(t *testing.T) {
	raw := []byte(`{"text":"pick one","quick_reply":{"items":[
		{"action":{"type":"message","label":"Leave","text":"leave"}},
		{"action":{"type":"datetimepicker","label":"When"}},
		{"action":{"type":"uri","label":"Portal","uri":"https://hr.example.com"}}
	]}}`)

	msg, err := Build(template.KindText, raw)
	require.NoError(t, err)

	text, ok := msg.(line.TextMessage)
	require.True(t, ok)
	require.NotNil(t, text.QuickReply)
	// The unrecognized datetimepicker option is skipped, not fatal.
	require.Len(t, text.QuickReply.Items, 2)
	assert.Equal(t, "message", text.QuickReply.Items[0].Action.Type)
	assert.Equal(t, "uri", text.QuickReply.Items[1].Action.Type)
}

func TestBuildQuickReplyKindRequiresOptions(t *testing.T) {
	t.Run("with usable options", func(t *testing.T) {
		raw := []byte(`{"text":"choose","quick_reply":{"items":[{"action":{"type":"message","label":"A"}}]}}`)
		msg, err := Build(template.KindQuickReply, raw)
		require.NoError(t, err)
		text, ok := msg.(line.TextMessage)
		require.True(t, ok)
		require.NotNil(t, text.QuickReply)
		// message action text defaults to the label
		assert.Equal(t, "A", text.QuickReply.Items[0].Action.Text)
	})

	t.Run("without options falls back", func(t *testing.T) {
		msg, err := Build(template.KindQuickReply, []byte(`{"text":"choose"}`))
		require.Error(t, err)
		var malformed *MalformedContentError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, template.KindQuickReply, malformed.Kind)
		// The fallback is still a sendable text message.
		_, ok := msg.(line.TextMessage)
		assert.True(t, ok)
	})
}

func TestBuildSticker(t *testing.T) {
	msg, err := Build(template.KindSticker, []byte(`{"package_id":"11537","sticker_id":"52002734"}`))
	require.NoError(t, err)

	sticker, ok := msg.(line.StickerMessage)
	require.True(t, ok)
	assert.Equal(t, "11537", sticker.PackageID)
	assert.Equal(t, "52002734", sticker.StickerID)
}

func TestBuildImagePreviewDefaultsToOriginal(t *testing.T) {
	msg, err := Build(template.KindImage, []byte(`{"original_content_url":"https://cdn.example.com/a.jpg"}`))
	require.NoError(t, err)

	image, ok := msg.(line.ImageMessage)
	require.True(t, ok)
	assert.Equal(t, image.OriginalContentURL, image.PreviewImageURL)
}

func TestBuildVideo(t *testing.T) {
	raw := []byte(`{"original_content_url":"https://cdn.example.com/v.mp4","preview_image_url":"https://cdn.example.com/v.jpg"}`)
	msg, err := Build(template.KindVideo, raw)
	require.NoError(t, err)
	_, ok := msg.(line.VideoMessage)
	assert.True(t, ok)
}

func TestBuildAudioDurationDefault(t *testing.T) {
	msg, err := Build(template.KindAudio, []byte(`{"original_content_url":"https://cdn.example.com/a.m4a"}`))
	require.NoError(t, err)

	audio, ok := msg.(line.AudioMessage)
	require.True(t, ok)
	assert.Equal(t, 1000, audio.Duration)
}

func TestBuildLocation(t *testing.T) {
	raw := []byte(`{"address":"1 Office Rd","latitude":13.7563,"longitude":100.5018}`)
	msg, err := Build(template.KindLocation, raw)
	require.NoError(t, err)

	location, ok := msg.(line.LocationMessage)
	require.True(t, ok)
	assert.Equal(t, "Location", location.Title)
	assert.Equal(t, 13.7563, location.Latitude)
}

func TestBuildButtons(t *testing.T) {
	raw := []byte(`{"text":"What do you need?","actions":[
		{"type":"message","label":"Leave balance","text":"leave balance"},
		{"type":"postback","label":"Payslip","data":"action=payslip"},
		{"type":"unknown_thing","label":"Nope"}
	]}`)
	msg, err := Build(template.KindButtons, raw)
	require.NoError(t, err)

	card, ok := msg.(line.TemplateMessage)
	require.True(t, ok)
	assert.Equal(t, "template", card.Type)
	assert.Equal(t, "buttons", card.Template.Type)
	require.Len(t, card.Template.Actions, 2)
}

func TestBuildUnknownKindIsHardError(t *testing.T) {
	msg, err := Build("carousel", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMessageKind)
	assert.Nil(t, msg)
}

func TestBuildMalformedContentNeverEscapes(t *testing.T) {
	cases := []struct {
		name string
		kind string
		raw  []byte
	}{
		{"text missing body", template.KindText, []byte(`{}`)},
		{"text broken json", template.KindText, []byte(`{not json`)},
		{"sticker missing id", template.KindSticker, []byte(`{"package_id":"1"}`)},
		{"image missing url", template.KindImage, []byte(`{}`)},
		{"video missing preview", template.KindVideo, []byte(`{"original_content_url":"x"}`)},
		{"audio missing url", template.KindAudio, []byte(`{}`)},
		{"location missing address", template.KindLocation, []byte(`{"title":"no address"}`)},
		{"buttons without actions", template.KindButtons, []byte(`{"text":"no actions"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Build(tc.kind, tc.raw)
			require.Error(t, err)
			var malformed *MalformedContentError
			require.ErrorAs(t, err, &malformed)

			text, ok := msg.(line.TextMessage)
			require.True(t, ok, "fallback must be plain text")
			assert.NotEmpty(t, text.Text)
		})
	}
}
