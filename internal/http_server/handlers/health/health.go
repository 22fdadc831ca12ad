package health

import (
	"context"
	"log/slog"
	"net/http"

	resp "todo_api/internal/lib/api/response"
	sl "todo_api/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func New(log *slog.Logger, pinger Pinger, env, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		if err := pinger.Ping(r.Context()); err != nil {
			log.Error("store ping failed",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				sl.Err(err),
			)

			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, Response{
				Response:    resp.Error("storage unavailable"),
				Environment: env,
				Version:     version,
			})

			return
		}

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Environment: env,
			Version:     version,
		})
	}
}
