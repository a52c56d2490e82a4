package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"clawchat/internal/pkg/errs"
)

func TestRouter_BroadcastToEmptyRoom(t *testing.T) {
	h := NewHub(nil, Options{})
	s := connect(t, h, user("alice"))
	drain(t, s)

	n := h.Router().Broadcast(ChannelRoom("nobody-here"), MessageDeleted{MessageID: "m1", ChannelID: "nobody-here"}, "")
	require.Zero(t, n)
	require.Empty(t, drain(t, s))
	require.Zero(t, h.Router().RoomCount())
}

func TestRouter_MembersReceiveOnce(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})

	a := connect(t, h, user("alice"))
	b := connect(t, h, user("bob"))
	outsider := connect(t, h, user("carol"))
	require.NoError(t, a.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, b.JoinRoom(ctx, ChannelRoom("general")))
	drain(t, a)
	drain(t, b)
	drain(t, outsider)

	evt := MessageDeleted{MessageID: "m1", ChannelID: "general"}
	require.Equal(t, 2, h.Router().Broadcast(ChannelRoom("general"), evt, ""))

	require.Equal(t, []DomainEvent{evt}, decodeAll(t, a))
	require.Equal(t, []DomainEvent{evt}, decodeAll(t, b))
	require.Empty(t, drain(t, outsider))
}

func TestRouter_BroadcastExcludesConnection(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})

	a := connect(t, h, user("alice"))
	b := connect(t, h, user("bob"))
	require.NoError(t, a.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, b.JoinRoom(ctx, ChannelRoom("general")))
	drain(t, a)
	drain(t, b)

	require.Equal(t, 1, h.Router().Broadcast(ChannelRoom("general"), MessageDeleted{MessageID: "m1"}, a.ID()))
	require.Empty(t, drain(t, a))
	require.Len(t, drain(t, b), 1)
}

func TestRouter_JoinAndLeaveAreIdempotent(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})
	s := connect(t, h, user("alice"))
	drain(t, s)

	room := ChannelRoom("general")
	require.NoError(t, s.JoinRoom(ctx, room))
	require.NoError(t, s.JoinRoom(ctx, room))
	require.Equal(t, []string{s.ID()}, h.Router().Members(room))
	require.Equal(t, []RoomID{room}, s.Rooms())

	require.Equal(t, 1, h.Router().Broadcast(room, MessageDeleted{MessageID: "m1"}, ""))
	require.Len(t, drain(t, s), 1)

	require.NoError(t, s.LeaveRoom(room))
	require.NoError(t, s.LeaveRoom(room))
	require.Empty(t, h.Router().Members(room))
	require.Zero(t, h.Router().RoomCount())
	require.False(t, s.InRoom(room))

	require.Zero(t, h.Router().Broadcast(room, MessageDeleted{MessageID: "m2"}, ""))
	require.Empty(t, drain(t, s))
}

func TestRouter_NoDeliveryAfterClose(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})
	s := connect(t, h, user("alice"))
	require.NoError(t, s.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, s.JoinRoom(ctx, ThreadRoom("t1")))
	drain(t, s)

	s.Close()

	require.Zero(t, h.Router().Broadcast(ChannelRoom("general"), MessageDeleted{MessageID: "m1"}, ""))
	require.Zero(t, h.Router().Broadcast(ThreadRoom("t1"), MessageEdited{}, ""))
	require.Zero(t, h.Router().BroadcastAll(BotSettingsUpdated{ChannelID: "general"}, ""))
	require.Empty(t, drain(t, s))
	require.Zero(t, h.Router().RoomCount())

	err := h.Router().BroadcastToConnection(s.ID(), MessageDeleted{})
	require.True(t, errs.HasCode(err, errs.ErrUnknownConnection))
}

func TestRouter_UnknownConnection(t *testing.T) {
	r := NewRouter()

	require.True(t, errs.HasCode(r.Join(ChannelRoom("general"), "missing"), errs.ErrUnknownConnection))
	require.True(t, errs.HasCode(r.Leave(ChannelRoom("general"), "missing"), errs.ErrUnknownConnection))
	r.Detach("missing")
	require.Zero(t, r.ConnectionCount())
}

func TestRouter_FullQueueIsIsolated(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{SendQueueSize: 1})

	// The online users snapshot fills the single slot of each queue.
	slow := connect(t, h, user("slow"))
	fast := connect(t, h, user("fast"))
	require.NoError(t, slow.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, fast.JoinRoom(ctx, ChannelRoom("general")))
	drain(t, fast)
	require.Len(t, slow.Outbound(), 1)

	n := h.Router().Broadcast(ChannelRoom("general"), MessageDeleted{MessageID: "m1"}, "")
	require.Equal(t, 1, n)
	require.Equal(t, []EventType{TypeMessageDeleted}, typesOf(drain(t, fast)))

	err := h.Router().BroadcastToConnection(slow.ID(), MessageDeleted{})
	require.True(t, errs.HasCode(err, errs.ErrDeliveryFailed))
	require.Equal(t, StateAuthenticated, slow.State())
}

func TestRouter_PerRoomOrderIsPreserved(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})
	s := connect(t, h, user("alice"))
	require.NoError(t, s.JoinRoom(ctx, ChannelRoom("general")))
	drain(t, s)

	ids := []string{"m1", "m2", "m3", "m4"}
	for _, id := range ids {
		h.Router().Broadcast(ChannelRoom("general"), MessageDeleted{MessageID: id, ChannelID: "general"}, "")
	}

	var got []string
	for _, evt := range decodeAll(t, s) {
		got = append(got, evt.(MessageDeleted).MessageID)
	}
	require.Equal(t, ids, got)
}
