package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"clawchat/internal/pkg/errs"
)

func TestEncodeEvent_WireShape(t *testing.T) {
	tests := []struct {
		name string
		evt  DomainEvent
		want string
	}{
		{
			name: "online users is a bare array",
			evt:  OnlineUsers{UserIDs: []string{"a", "b"}},
			want: `{"type":"online_users","payload":["a","b"]}`,
		},
		{
			name: "empty online users",
			evt:  OnlineUsers{},
			want: `{"type":"online_users","payload":[]}`,
		},
		{
			name: "user offline",
			evt:  UserOffline{UserID: "u1"},
			want: `{"type":"user_offline","payload":{"userId":"u1"}}`,
		},
		{
			name: "typing omits empty thread",
			evt:  TypingPing{ChannelID: "general"},
			want: `{"type":"user_typing","payload":{"user":{"id":"","username":""},"channelId":"general"}}`,
		},
		{
			name: "message deleted",
			evt:  MessageDeleted{MessageID: "m1", ChannelID: "general"},
			want: `{"type":"message_deleted","payload":{"messageId":"m1","channelId":"general"}}`,
		},
		{
			name: "reaction removed",
			evt:  ReactionRemoved{MessageID: "m1", Emoji: "🔥", UserID: "u1"},
			want: `{"type":"reaction_removed","payload":{"message_id":"m1","emoji":"🔥","user_id":"u1"}}`,
		},
		{
			name: "bot settings",
			evt:  BotSettingsUpdated{ChannelID: "c1", NewSettings: json.RawMessage(`{"mode":"all"}`)},
			want: `{"type":"bot_settings_updated","payload":{"channel_id":"c1","new_settings":{"mode":"all"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeEvent(tt.evt)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Run("round trips a mention", func(t *testing.T) {
		evt := BotMentioned{
			Message:       Message{ID: "m1", ChannelID: "c1", Content: "@bot"},
			ChannelID:     "c1",
			ThreadID:      "t1",
			MentionedBots: []string{"bot"},
		}
		raw, err := EncodeEvent(evt)
		require.NoError(t, err)

		got, err := DecodeEvent(raw)
		require.NoError(t, err)
		require.Equal(t, evt, got)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"type":"self_destruct","payload":{}}`))
		require.True(t, errs.HasCode(err, errs.ErrUnknownEvent))
	})

	t.Run("malformed envelope", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"type":`))
		require.True(t, errs.HasCode(err, errs.ErrInvalidJSONFormat))
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"type":"new_message"}`))
		require.True(t, errs.HasCode(err, errs.ErrInvalidParams))
	})

	t.Run("payload of the wrong shape", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"type":"online_users","payload":{"a":1}}`))
		require.True(t, errs.HasCode(err, errs.ErrInvalidJSONFormat))
	})
}

func TestRoomID(t *testing.T) {
	require.Equal(t, "channel:general", ChannelRoom("general").String())
	require.Equal(t, "thread:root-1", ThreadRoom("root-1").String())
	require.NotEqual(t, ChannelRoom("x"), ThreadRoom("x"))
	require.NoError(t, ChannelRoom("general").Validate())
}
