package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybot/internal/dispatch"
)

func TestToEventText(t *testing.T) {
	name := "alice"
	evt := toEvent(&webhookUpdate{
		UpdateID: 100,
		Message: &webhookMessage{
			MessageID: 7,
			From:      &webhookUser{ID: 42, Username: &name},
			Text:      "/start",
		},
	})
	require.NotNil(t, evt)
	assert.Equal(t, dispatch.KindText, evt.Kind)
	assert.Equal(t, "/start", evt.Text)
	assert.Equal(t, int64(42), evt.Sender)
	assert.Equal(t, "100", evt.ID)
}

func TestToEventPhotoPicksLargestRendition(t *testing.T) {
	evt := toEvent(&webhookUpdate{
		UpdateID: 101,
		Message: &webhookMessage{
			MessageID: 8,
			From:      &webhookUser{ID: 42},
			Photo:     []webhookPhoto{{FileID: "small"}, {FileID: "large"}},
		},
	})
	require.NotNil(t, evt)
	assert.Equal(t, dispatch.KindMedia, evt.Kind)
	assert.Equal(t, "large", evt.MediaID)
}

func TestToEventCallback(t *testing.T) {
	evt := toEvent(&webhookUpdate{
		UpdateID: 102,
		Callback: &webhookCallback{
			ID:      "cb-1",
			From:    &webhookUser{ID: 42},
			Data:    "doc:7",
			Message: &webhookMessage{MessageID: 9},
		},
	})
	require.NotNil(t, evt)
	assert.Equal(t, dispatch.KindAction, evt.Kind)
	assert.Equal(t, "doc:7", evt.Action)
	assert.Equal(t, "cb-1", evt.CallbackID)
	assert.Equal(t, 9, evt.MessageID)
}

func TestToEventIgnoresUnknownShapes(t *testing.T) {
	assert.Nil(t, toEvent(&webhookUpdate{UpdateID: 103}))
}
