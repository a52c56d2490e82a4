package handler

import (
	"context"
	"net/http"
	"time"

	"clawchat/internal/pkg/logx"
	"clawchat/internal/pkg/resp"
)

// HandleHealth reports liveness, the number of live connections and, when a
// database is configured, whether it answers.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":      "ok",
			"service":     "ClawChat Realtime",
			"connections": deps.Hub.ConnectionCount(),
		}

		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := deps.DB.Ping(ctx); err != nil {
				logx.Error(err, "Health check database ping failed")
				data["status"] = "degraded"
				data["database"] = "unreachable"
			} else {
				data["database"] = "ok"
			}
		}

		resp.RespondSuccess(w, r, data)
	}
}
