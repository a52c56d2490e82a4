package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clawchat/internal/app/identity"
	"clawchat/internal/app/realtime"
	"clawchat/internal/pkg/auth/jwt"
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
	"clawchat/internal/pkg/resp"
)

// credentialFromRequest collects the session token (header or query) and the
// bot API key (query) presented by a client.
func credentialFromRequest(r *http.Request) identity.Credential {
	return identity.Credential{
		Token:  jwt.TokenFromRequest(r),
		APIKey: r.URL.Query().Get("api_key"),
	}
}

// HandleWebSocket authenticates the request, upgrades it, and runs the
// connection until it closes. Authentication failures are answered with a
// JSON error before any upgrade, so no session is ever created for them.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := deps.Auth.Authenticate(r.Context(), credentialFromRequest(r))
		if err != nil {
			customErr := errs.From(err)
			logx.Warn("WebSocket connection rejected: Authentication failed.",
				"code", customErr.Code,
				"remote_ip", logx.AnonymizeIP(r.RemoteAddr),
			)
			resp.RespondError(w, r, customErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", who.ID)
			return
		}

		session, err := deps.Hub.Connect(who)
		if err != nil {
			logx.Warn("WebSocket connection refused by hub.", "user_id", who.ID, "error", err.Error())
			closeMessage := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}

		client := realtime.NewClient(session, conn)

		go client.WritePump()

		client.ReadPump()
	}
}
