package realtime

import (
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/randx"
)

// RoomKind distinguishes channel rooms from thread rooms.
type RoomKind string

const (
	RoomChannel RoomKind = "channel"
	RoomThread  RoomKind = "thread"
)

// RoomID names a subscription group. Two rooms are equal when kind and id match.
type RoomID struct {
	Kind RoomKind
	ID   string
}

// ChannelRoom returns the room of a channel.
func ChannelRoom(channelID string) RoomID {
	return RoomID{Kind: RoomChannel, ID: channelID}
}

// ThreadRoom returns the room of a thread.
func ThreadRoom(threadID string) RoomID {
	return RoomID{Kind: RoomThread, ID: threadID}
}

// String returns the room key, e.g. "channel:general".
func (r RoomID) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Validate checks the kind and the syntax of the id.
func (r RoomID) Validate() error {
	if r.Kind != RoomChannel && r.Kind != RoomThread {
		return errs.NewError(errs.ErrInvalidRoomTarget)
	}
	if !randx.IsValidID(r.ID) {
		return errs.NewError(errs.ErrInvalidRoomTarget)
	}
	return nil
}
