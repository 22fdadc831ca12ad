package whoami

import (
	"log/slog"
	"net/http"

	"todo_api/internal/http_server/middleware/authenticate"
	resp "todo_api/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.whoami.New"

		user, ok := authenticate.User(r)
		if !ok {
			log.Error("route mounted without authentication",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		render.JSON(w, r, user)
	}
}
