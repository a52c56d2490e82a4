package handler

import (
	"context"
	"net/http"

	"clawchat/internal/app/identity"
	"clawchat/internal/app/realtime"
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
	"clawchat/internal/pkg/req"
	"clawchat/internal/pkg/resp"
)

type identityKey struct{}

// IdentityFromContext returns the identity stored by RequireAdmin.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	who, ok := ctx.Value(identityKey{}).(identity.Identity)
	return who, ok
}

// RequireAdmin authenticates the request like a websocket upgrade and only
// lets admin identities through.
func RequireAdmin(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := auth.Authenticate(r.Context(), credentialFromRequest(r))
			if err != nil {
				resp.RespondError(w, r, errs.From(err))
				return
			}
			if who.Role != identity.RoleAdmin {
				logx.Warn("Internal endpoint rejected non-admin caller.", "user_id", who.ID, "path", r.URL.Path)
				resp.RespondError(w, r, errs.NewError(errs.ErrAdminRequired))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, who)))
		})
	}
}

// HandlePublishEvent accepts a committed write-path event as a
// {"type", "payload"} envelope and broadcasts it.
func HandlePublishEvent(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope realtime.Envelope
		if customErr := req.BindJSON(w, r, &envelope); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		evt, err := envelope.Decode()
		if err != nil {
			resp.RespondError(w, r, errs.From(err))
			return
		}

		if err := deps.Broadcaster.Publish(r.Context(), evt); err != nil {
			resp.RespondError(w, r, errs.From(err))
			return
		}

		who, _ := IdentityFromContext(r.Context())
		logx.Info("Event published over HTTP.", "type", string(evt.Type()), "by", who.ID)

		resp.RespondSuccess(w, r, map[string]any{"type": evt.Type()})
	}
}

// HandlePresence lists the users that currently hold a connection.
func HandlePresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"online":      deps.Hub.Presence().ListOnlineUserIds(),
			"connections": deps.Hub.ConnectionCount(),
			"rooms":       deps.Hub.Router().RoomCount(),
		})
	}
}
