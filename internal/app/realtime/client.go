package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clawchat/internal/pkg/errs"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// upper bound for authorizing a single join.
	commandTimeout = 5 * time.Second
)

// CommandType is the name of an inbound client command.
type CommandType string

const (
	CmdJoinChannel  CommandType = "join_channel"
	CmdLeaveChannel CommandType = "leave_channel"
	CmdJoinThread   CommandType = "join_thread"
	CmdLeaveThread  CommandType = "leave_thread"
	CmdTyping       CommandType = "typing"
)

type channelCommand struct {
	ChannelID string `json:"channelId" validate:"required,max=64"`
}

type threadCommand struct {
	ThreadID string `json:"threadId" validate:"required,max=64"`
}

type typingCommand struct {
	ChannelID string `json:"channelId" validate:"required,max=64"`
	ThreadID  string `json:"threadId,omitempty" validate:"omitempty,max=64"`
}

var validate = validator.New()

// Client binds a websocket connection to a session.
type Client struct {
	session *Session
	conn    *websocket.Conn
	logger  zerolog.Logger
}

// NewClient wraps conn for session.
func NewClient(session *Session, conn *websocket.Conn) *Client {
	return &Client{
		session: session,
		conn:    conn,
		logger:  session.logger,
	}
}

// ReadPump reads client commands until the connection fails, then closes
// the session. Commands from one connection are applied in arrival order.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.session.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundMessage decodes one frame and applies the command. Failures
// are reported back to the client as an error event.
func (c *Client) processInboundMessage(messageBytes []byte) {
	var inbound struct {
		Type    CommandType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.reject("", errs.Wrap(errs.ErrInvalidJSONFormat, err))
		return
	}

	if err := c.dispatch(inbound.Type, inbound.Payload); err != nil {
		c.logger.Debug().Err(err).Str("command", string(inbound.Type)).Msg("Command rejected")
		c.reject(inbound.Type, err)
	}
}

func (c *Client) dispatch(cmd CommandType, payload json.RawMessage) error {
	switch cmd {
	case CmdJoinChannel, CmdLeaveChannel:
		var p channelCommand
		if err := decodeCommand(payload, &p); err != nil {
			return err
		}
		if cmd == CmdJoinChannel {
			return c.join(ChannelRoom(p.ChannelID))
		}
		return c.session.LeaveRoom(ChannelRoom(p.ChannelID))

	case CmdJoinThread, CmdLeaveThread:
		var p threadCommand
		if err := decodeCommand(payload, &p); err != nil {
			return err
		}
		if cmd == CmdJoinThread {
			return c.join(ThreadRoom(p.ThreadID))
		}
		return c.session.LeaveRoom(ThreadRoom(p.ThreadID))

	case CmdTyping:
		var p typingCommand
		if err := decodeCommand(payload, &p); err != nil {
			return err
		}
		return c.session.Typing(p.ChannelID, p.ThreadID)

	default:
		return errs.NewError(errs.ErrUnsupportedCommand, cmd)
	}
}

func (c *Client) join(room RoomID) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return c.session.JoinRoom(ctx, room)
}

func decodeCommand(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return errs.Wrap(errs.ErrInvalidJSONFormat, err)
	}
	if err := validate.Struct(dst); err != nil {
		return errs.Wrap(errs.ErrInvalidParams, err)
	}
	return nil
}

// reject queues an error event for the client.
func (c *Client) reject(cmd CommandType, err error) {
	customErr := errs.From(err)

	evt := CommandRejected{
		Command: string(cmd),
		Code:    customErr.Code,
		Message: customErr.Message,
	}

	if err := c.session.hub.router.BroadcastToConnection(c.session.id, evt); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to queue error event")
	}
}

// WritePump drains the session queue into the connection and keeps the
// connection alive with pings. It returns when the session is closed or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message := <-c.session.Outbound():
			if !c.writeQueuedMessage(message) {
				return
			}

		case <-c.session.Done():
			c.writeCloseMessage()
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage returns false if the WritePump loop should terminate.
func (c *Client) writeQueuedMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// writePingMessage returns false if the WritePump loop should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
