package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"todo_api/internal/auth"
	"todo_api/internal/http_server/middleware/authenticate"
	resp "todo_api/internal/lib/api/response"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required"`
	Pass  string `json:"password" validate:"required"`
}

type UserLoginer interface {
	Login(ctx context.Context, email, password string) (models.User, string, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	loginer UserLoginer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, token, err := loginer.Login(r.Context(), req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				log.Error("storage unavailable", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))

				return
			}

			if errors.Is(err, auth.ErrInvalidCredentials) {
				log.Info("invalid credentials")
			} else {
				log.Error("failed to login user", sl.Err(err))
			}

			// Unknown email and wrong password look the same to the client.
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid credentials"))

			return
		}

		log.Info("User logged in successfully")

		w.Header().Set(authenticate.Header, token)
		render.JSON(w, r, user)
	}
}
