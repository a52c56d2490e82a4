package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

// ChannelResolver finds the channel a message belongs to.
type ChannelResolver interface {
	MessageChannel(ctx context.Context, messageID string) (string, error)
}

// Broadcaster turns committed write-path actions into room deliveries.
// Callers invoke it only after the change is durable. Delivery problems are
// logged and never returned.
type Broadcaster struct {
	router   *Router
	mentions *MentionMatcher
	channels ChannelResolver
	logger   zerolog.Logger
}

// NewBroadcaster builds a Broadcaster on the hub's router. channels may be
// nil when every reaction event carries its channel id.
func NewBroadcaster(hub *Hub, mentions *MentionMatcher, channels ChannelResolver) *Broadcaster {
	if mentions == nil {
		mentions = NewMentionMatcher(nil)
	}

	return &Broadcaster{
		router:   hub.router,
		mentions: mentions,
		channels: channels,
		logger:   logx.Component("broadcaster"),
	}
}

// Publish dispatches a decoded write-path event. Room ids missing from the
// message fall back to the envelope's channelId/threadId; an event that still
// names no room is rejected with ErrInvalidParams. Presence, typing and
// transport-only events cannot be published this way.
func (b *Broadcaster) Publish(ctx context.Context, evt DomainEvent) error {
	switch e := evt.(type) {
	case MessageCreated:
		msg := e.Message
		if msg.ChannelID == "" {
			msg.ChannelID = e.ChannelID
		}
		if msg.ChannelID == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		b.MessageCreated(msg)
	case ThreadReplyCreated:
		msg := e.Message
		threadID := e.ThreadID
		if threadID == "" {
			threadID = msg.ThreadID
		}
		if msg.ThreadID == "" {
			msg.ThreadID = threadID
		}
		if msg.ChannelID == "" || threadID == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		b.ThreadReplyCreated(msg, threadID)
	case MessageEdited:
		if e.Message.ChannelID == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		b.MessageEdited(e.Message)
	case MessageDeleted:
		if e.ChannelID == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
		b.MessageDeleted(e.MessageID, e.ChannelID)
	case ReactionAdded:
		b.ReactionAdded(ctx, e)
	case ReactionRemoved:
		b.ReactionRemoved(ctx, e)
	case BotSettingsUpdated:
		b.BotSettingsUpdated(e.ChannelID, e.NewSettings)
	case BotMentioned:
		b.router.BroadcastAll(e, "")
	default:
		return errs.NewError(errs.ErrUnknownEvent, evt.Type())
	}
	return nil
}

// MessageCreated announces a message posted to a channel. A threaded message
// also goes to the thread room as a thread reply. Messages from human authors
// are scanned for bot mentions.
func (b *Broadcaster) MessageCreated(msg Message) {
	if msg.IsThreaded() {
		b.router.Broadcast(ThreadRoom(msg.ThreadID), ThreadReplyCreated{Message: msg, ThreadID: msg.ThreadID}, "")
	}
	b.router.Broadcast(ChannelRoom(msg.ChannelID), MessageCreated{Message: msg, ChannelID: msg.ChannelID}, "")

	if msg.Author != nil && msg.Author.IsBot {
		return
	}

	bots := b.mentions.Match(msg.Content)
	if len(bots) == 0 {
		return
	}

	n := b.router.BroadcastAll(BotMentioned{
		Message:       msg,
		ChannelID:     msg.ChannelID,
		ThreadID:      msg.ThreadID,
		MentionedBots: bots,
	}, "")

	b.logger.Debug().
		Str("message_id", msg.ID).
		Strs("bots", bots).
		Int("recipients", n).
		Msg("Bot mention broadcast.")
}

// ThreadReplyCreated announces a reply posted through a thread: first to the
// thread room, then to the parent channel room.
func (b *Broadcaster) ThreadReplyCreated(msg Message, threadID string) {
	if threadID == "" {
		threadID = msg.ThreadID
	}

	b.router.Broadcast(ThreadRoom(threadID), ThreadReplyCreated{Message: msg, ThreadID: threadID}, "")
	b.router.Broadcast(ChannelRoom(msg.ChannelID), MessageCreated{Message: msg, ChannelID: msg.ChannelID}, "")
}

// MessageEdited sends the updated message to its channel and, if threaded, its thread.
func (b *Broadcaster) MessageEdited(msg Message) {
	evt := MessageEdited{Message: msg}

	b.router.Broadcast(ChannelRoom(msg.ChannelID), evt, "")
	if msg.IsThreaded() {
		b.router.Broadcast(ThreadRoom(msg.ThreadID), evt, "")
	}
}

// MessageDeleted tells the channel a message is gone. Thread rooms are not notified.
func (b *Broadcaster) MessageDeleted(messageID, channelID string) {
	b.router.Broadcast(ChannelRoom(channelID), MessageDeleted{MessageID: messageID, ChannelID: channelID}, "")
}

// ReactionAdded sends the reaction to the channel of the message.
func (b *Broadcaster) ReactionAdded(ctx context.Context, evt ReactionAdded) {
	channelID, ok := b.resolveChannel(ctx, evt.ChannelID, evt.MessageID)
	if !ok {
		return
	}
	evt.ChannelID = channelID
	b.router.Broadcast(ChannelRoom(channelID), evt, "")
}

// ReactionRemoved sends the withdrawal to the channel of the message.
func (b *Broadcaster) ReactionRemoved(ctx context.Context, evt ReactionRemoved) {
	channelID, ok := b.resolveChannel(ctx, evt.ChannelID, evt.MessageID)
	if !ok {
		return
	}
	evt.ChannelID = channelID
	b.router.Broadcast(ChannelRoom(channelID), evt, "")
}

// BotSettingsUpdated is sent to every connection.
func (b *Broadcaster) BotSettingsUpdated(channelID string, settings []byte) {
	b.router.BroadcastAll(BotSettingsUpdated{ChannelID: channelID, NewSettings: settings}, "")
}

func (b *Broadcaster) resolveChannel(ctx context.Context, channelID, messageID string) (string, bool) {
	if channelID != "" {
		return channelID, true
	}
	if b.channels == nil {
		b.logger.Warn().Str("message_id", messageID).Msg("Reaction without channel and no resolver configured.")
		return "", false
	}

	resolved, err := b.channels.MessageChannel(ctx, messageID)
	if err != nil {
		b.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to resolve channel for reaction.")
		return "", false
	}
	return resolved, true
}
