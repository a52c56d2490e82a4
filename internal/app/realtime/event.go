package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"clawchat/internal/app/identity"
	"clawchat/internal/pkg/errs"
)

// EventType is the wire name of an outbound event.
type EventType string

const (
	TypeNewMessage         EventType = "new_message"
	TypeThreadReply        EventType = "thread_reply"
	TypeMessageEdited      EventType = "message_edited"
	TypeMessageDeleted     EventType = "message_deleted"
	TypeReactionAdded      EventType = "reaction_added"
	TypeReactionRemoved    EventType = "reaction_removed"
	TypeUserTyping         EventType = "user_typing"
	TypeMention            EventType = "mention"
	TypeBotSettingsUpdated EventType = "bot_settings_updated"
	TypeUserOnline         EventType = "user_online"
	TypeUserOffline        EventType = "user_offline"
	TypeOnlineUsers        EventType = "online_users"
	TypeError              EventType = "error"
)

// DomainEvent is the closed set of events the core delivers to clients.
// Only types in this package implement it.
type DomainEvent interface {
	Type() EventType
	domainEvent()
}

// Author is the public projection of a message author.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsBot     bool   `json:"is_bot"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Message is the message projection assembled by the write path after commit.
type Message struct {
	ID             string          `json:"id"`
	ChannelID      string          `json:"channel_id"`
	AuthorID       string          `json:"author_id"`
	Content        string          `json:"content"`
	ThreadID       string          `json:"thread_id,omitempty"`
	ReplyTo        string          `json:"reply_to,omitempty"`
	EditedAt       *time.Time      `json:"edited_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	HasAttachments bool            `json:"has_attachments"`
	Author         *Author         `json:"author,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// IsThreaded reports whether the message is a reply inside a thread.
func (m Message) IsThreaded() bool {
	return m.ThreadID != ""
}

// MessageCreated announces a new message to its channel room.
type MessageCreated struct {
	Message   Message `json:"message"`
	ChannelID string  `json:"channelId"`
}

// ThreadReplyCreated announces a reply to the thread room.
type ThreadReplyCreated struct {
	Message  Message `json:"message"`
	ThreadID string  `json:"threadId"`
}

// MessageEdited carries the full updated message.
type MessageEdited struct {
	Message Message `json:"message"`
}

// MessageDeleted carries only the id of the removed message.
type MessageDeleted struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
}

// ReactionAdded reports an emoji added by a user. ChannelID may be left empty
// by the write path; the broadcaster then resolves it from the message.
type ReactionAdded struct {
	MessageID string          `json:"message_id"`
	Emoji     string          `json:"emoji"`
	User      identity.Public `json:"user"`
	ChannelID string          `json:"channelId,omitempty"`
}

// ReactionRemoved reports an emoji withdrawn by a user.
type ReactionRemoved struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channelId,omitempty"`
}

// TypingPing is relayed to a room, never persisted.
type TypingPing struct {
	User      identity.Public `json:"user"`
	ChannelID string          `json:"channelId"`
	ThreadID  string          `json:"threadId,omitempty"`
}

// BotMentioned tells bot clients that a message names one of their handles.
type BotMentioned struct {
	Message       Message  `json:"message"`
	ChannelID     string   `json:"channelId"`
	ThreadID      string   `json:"threadId,omitempty"`
	MentionedBots []string `json:"mentionedBots"`
}

// BotSettingsUpdated is broadcast to everyone; clients filter by channel.
type BotSettingsUpdated struct {
	ChannelID   string          `json:"channel_id"`
	NewSettings json.RawMessage `json:"new_settings"`
}

// UserOnline marks a user's first open connection.
type UserOnline struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// UserOffline marks the close of a user's last connection.
type UserOffline struct {
	UserID string `json:"userId"`
}

// OnlineUsers is the initial presence snapshot sent to a new connection.
// On the wire its payload is a bare array of user ids.
type OnlineUsers struct {
	UserIDs []string
}

// MarshalJSON encodes the snapshot as a JSON array.
func (o OnlineUsers) MarshalJSON() ([]byte, error) {
	ids := o.UserIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON decodes a JSON array of user ids.
func (o *OnlineUsers) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &o.UserIDs)
}

// CommandRejected answers a client command that could not be applied.
type CommandRejected struct {
	Command string `json:"command,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (MessageCreated) Type() EventType     { return TypeNewMessage }
func (ThreadReplyCreated) Type() EventType { return TypeThreadReply }
func (MessageEdited) Type() EventType      { return TypeMessageEdited }
func (MessageDeleted) Type() EventType     { return TypeMessageDeleted }
func (ReactionAdded) Type() EventType      { return TypeReactionAdded }
func (ReactionRemoved) Type() EventType    { return TypeReactionRemoved }
func (TypingPing) Type() EventType         { return TypeUserTyping }
func (BotMentioned) Type() EventType       { return TypeMention }
func (BotSettingsUpdated) Type() EventType { return TypeBotSettingsUpdated }
func (UserOnline) Type() EventType         { return TypeUserOnline }
func (UserOffline) Type() EventType        { return TypeUserOffline }
func (OnlineUsers) Type() EventType        { return TypeOnlineUsers }
func (CommandRejected) Type() EventType    { return TypeError }

func (MessageCreated) domainEvent()     {}
func (ThreadReplyCreated) domainEvent() {}
func (MessageEdited) domainEvent()      {}
func (MessageDeleted) domainEvent()     {}
func (ReactionAdded) domainEvent()      {}
func (ReactionRemoved) domainEvent()    {}
func (TypingPing) domainEvent()         {}
func (BotMentioned) domainEvent()       {}
func (BotSettingsUpdated) domainEvent() {}
func (UserOnline) domainEvent()         {}
func (UserOffline) domainEvent()        {}
func (OnlineUsers) domainEvent()        {}
func (CommandRejected) domainEvent()    {}

// Envelope is the frame written to the transport and to the event relay.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent renders evt as an envelope.
func EncodeEvent(evt DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", evt.Type(), err)
	}

	return json.Marshal(Envelope{Type: evt.Type(), Payload: payload})
}

// DecodeEvent parses an envelope back into its concrete event type.
func DecodeEvent(data []byte) (DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidJSONFormat, err)
	}
	return env.Decode()
}

// Decode returns the concrete event carried by the envelope.
func (env Envelope) Decode() (DomainEvent, error) {
	switch env.Type {
	case TypeNewMessage:
		return decodePayload[MessageCreated](env)
	case TypeThreadReply:
		return decodePayload[ThreadReplyCreated](env)
	case TypeMessageEdited:
		return decodePayload[MessageEdited](env)
	case TypeMessageDeleted:
		return decodePayload[MessageDeleted](env)
	case TypeReactionAdded:
		return decodePayload[ReactionAdded](env)
	case TypeReactionRemoved:
		return decodePayload[ReactionRemoved](env)
	case TypeUserTyping:
		return decodePayload[TypingPing](env)
	case TypeMention:
		return decodePayload[BotMentioned](env)
	case TypeBotSettingsUpdated:
		return decodePayload[BotSettingsUpdated](env)
	case TypeUserOnline:
		return decodePayload[UserOnline](env)
	case TypeUserOffline:
		return decodePayload[UserOffline](env)
	case TypeOnlineUsers:
		return decodePayload[OnlineUsers](env)
	case TypeError:
		return decodePayload[CommandRejected](env)
	default:
		return nil, errs.NewError(errs.ErrUnknownEvent, env.Type)
	}
}

func decodePayload[T DomainEvent](env Envelope) (DomainEvent, error) {
	var evt T
	if len(env.Payload) == 0 {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidJSONFormat, err)
	}
	return evt, nil
}
