package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"clawchat/internal/app/identity"
	"clawchat/internal/pkg/errs"
)

func TestSession_TypingIsNotEchoed(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})

	a := connect(t, h, user("alice"))
	b := connect(t, h, user("bob"))
	require.NoError(t, a.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, b.JoinRoom(ctx, ChannelRoom("general")))
	drain(t, a)
	drain(t, b)

	require.NoError(t, a.Typing("general", ""))

	require.Empty(t, drain(t, a))
	require.Equal(t, []DomainEvent{TypingPing{
		User:      identity.Public{ID: "alice", Username: "alice-name"},
		ChannelID: "general",
	}}, decodeAll(t, b))
}

func TestSession_TypingInThreadTargetsThreadRoom(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})

	typist := connect(t, h, user("alice"))
	inChannel := connect(t, h, user("bob"))
	inThread := connect(t, h, user("carol"))
	require.NoError(t, inChannel.JoinRoom(ctx, ChannelRoom("general")))
	require.NoError(t, inThread.JoinRoom(ctx, ThreadRoom("root-1")))
	drain(t, typist)
	drain(t, inChannel)
	drain(t, inThread)

	require.NoError(t, typist.Typing("general", "root-1"))

	require.Empty(t, drain(t, inChannel))
	got := decodeAll(t, inThread)
	require.Len(t, got, 1)
	require.Equal(t, "root-1", got[0].(TypingPing).ThreadID)
	require.Equal(t, "general", got[0].(TypingPing).ChannelID)
}

func TestSession_InvalidTargets(t *testing.T) {
	ctx := context.Background()
	h := NewHub(nil, Options{})
	s := connect(t, h, user("alice"))

	tests := []struct {
		name string
		err  error
	}{
		{"empty channel", s.JoinRoom(ctx, ChannelRoom(""))},
		{"bad characters", s.JoinRoom(ctx, ThreadRoom("a b"))},
		{"unknown kind", s.JoinRoom(ctx, RoomID{Kind: "dm", ID: "x"})},
		{"leave empty", s.LeaveRoom(ChannelRoom(""))},
		{"typing without channel", s.Typing("", "")},
		{"typing with bad channel in thread", s.Typing("no good", "root-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, errs.HasCode(tt.err, errs.ErrInvalidRoomTarget), "got %v", tt.err)
		})
	}
	require.Empty(t, s.Rooms())
}

func TestSession_AuthorizerDecidesJoins(t *testing.T) {
	ctx := context.Background()
	authz := RoomAuthorizerFunc(func(_ context.Context, who identity.Identity, room RoomID) error {
		if room.ID == "secret" && who.Role != identity.RoleAdmin {
			return errs.NewError(errs.ErrRoomForbidden)
		}
		return nil
	})
	h := NewHub(nil, Options{Authorizer: authz})

	s := connect(t, h, user("alice"))
	err := s.JoinRoom(ctx, ChannelRoom("secret"))
	require.True(t, errs.HasCode(err, errs.ErrRoomForbidden))
	require.Empty(t, s.Rooms())

	admin := connect(t, h, identity.Identity{ID: "root", Role: identity.RoleAdmin})
	require.NoError(t, admin.JoinRoom(ctx, ChannelRoom("secret")))
	require.True(t, admin.InRoom(ChannelRoom("secret")))
}

type fakeMembership struct {
	members  map[string][]string
	messages map[string]string
	err      error
}

func (f *fakeMembership) IsChannelMember(_ context.Context, channelID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[channelID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembership) MessageChannel(_ context.Context, messageID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	ch, ok := f.messages[messageID]
	if !ok {
		return "", errors.New("no rows")
	}
	return ch, nil
}

func TestMembershipAuthorizer(t *testing.T) {
	ctx := context.Background()
	store := &fakeMembership{
		members:  map[string][]string{"general": {"alice"}},
		messages: map[string]string{"root-1": "general"},
	}
	authz := NewMembershipAuthorizer(store)

	alice := user("alice")
	bob := user("bob")

	require.NoError(t, authz.AuthorizeJoin(ctx, alice, ChannelRoom("general")))
	require.NoError(t, authz.AuthorizeJoin(ctx, alice, ThreadRoom("root-1")))
	require.True(t, errs.HasCode(authz.AuthorizeJoin(ctx, bob, ChannelRoom("general")), errs.ErrRoomForbidden))
	require.True(t, errs.HasCode(authz.AuthorizeJoin(ctx, bob, ThreadRoom("root-1")), errs.ErrRoomForbidden))
	require.True(t, errs.HasCode(authz.AuthorizeJoin(ctx, alice, ThreadRoom("unknown")), errs.ErrRoomForbidden))

	admin := identity.Identity{ID: "root", Role: identity.RoleAdmin}
	require.NoError(t, authz.AuthorizeJoin(ctx, admin, ChannelRoom("anything")))

	boom := errors.New("db down")
	store.err = boom
	err := authz.AuthorizeJoin(ctx, alice, ChannelRoom("general"))
	require.True(t, errs.HasCode(err, errs.ErrRoomForbidden))
	require.ErrorIs(t, err, boom)
}

func TestSessionState_String(t *testing.T) {
	require.Equal(t, "connecting", StateConnecting.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "closed", StateClosed.String())
}
