package realtime

import (
	"context"

	"clawchat/internal/app/identity"
	"clawchat/internal/pkg/errs"
)

// RoomAuthorizer decides whether an identity may subscribe to a room.
type RoomAuthorizer interface {
	AuthorizeJoin(ctx context.Context, who identity.Identity, room RoomID) error
}

// RoomAuthorizerFunc adapts a function to RoomAuthorizer.
type RoomAuthorizerFunc func(ctx context.Context, who identity.Identity, room RoomID) error

func (f RoomAuthorizerFunc) AuthorizeJoin(ctx context.Context, who identity.Identity, room RoomID) error {
	return f(ctx, who, room)
}

// AllowAll lets every authenticated identity join any room.
var AllowAll RoomAuthorizer = RoomAuthorizerFunc(func(context.Context, identity.Identity, RoomID) error {
	return nil
})

// ChannelMembership answers membership questions from the persistence layer.
type ChannelMembership interface {
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	ChannelResolver
}

// MembershipAuthorizer only admits channel members to a channel room, and to
// the thread rooms whose root message lives in that channel. Admins may join
// any room.
type MembershipAuthorizer struct {
	store ChannelMembership
}

// NewMembershipAuthorizer builds an authorizer backed by store.
func NewMembershipAuthorizer(store ChannelMembership) *MembershipAuthorizer {
	return &MembershipAuthorizer{store: store}
}

func (a *MembershipAuthorizer) AuthorizeJoin(ctx context.Context, who identity.Identity, room RoomID) error {
	if who.Role == identity.RoleAdmin {
		return nil
	}

	channelID := room.ID
	if room.Kind == RoomThread {
		resolved, err := a.store.MessageChannel(ctx, room.ID)
		if err != nil {
			return errs.Wrap(errs.ErrRoomForbidden, err)
		}
		channelID = resolved
	}

	ok, err := a.store.IsChannelMember(ctx, channelID, who.ID)
	if err != nil {
		return errs.Wrap(errs.ErrRoomForbidden, err)
	}
	if !ok {
		return errs.NewError(errs.ErrRoomForbidden)
	}
	return nil
}
