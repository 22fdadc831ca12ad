package register

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

type UserRegisterer interface {
	RegisterNewUser(ctx context.Context, email, pass string) (models.User, string, error)
}

// New godoc
// @Summary      Register a user
// @Description  Creates the user, issues the first auth token and returns it in the x-auth header.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body  object{email=string,password=string}  true  "Credentials"
// @Success      200  {object}  object{_id=string,email=string}
// @Header       200  {string}  x-auth  "Auth token"
// @Failure      400  {object}  object{status=string,error=string}  "Validation failed or email taken"
// @Router       /users [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	registerer UserRegisterer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.register.New"

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

		user, token, err := registerer.RegisterNewUser(r.Context(), req.Email, req.Pass)
		if err != nil {
			var vErr *models.ValidationError

			switch {
			case errors.As(err, &vErr):
				log.Info("user rejected", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(vErr.Errs))
			case errors.Is(err, auth.ErrUserExists):
				log.Info("email already registered")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("user already exists"))
			case errors.Is(err, storage.ErrUnavailable):
				log.Error("storage unavailable", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))
			default:
				log.Error("failed to register user", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to register user"))
			}

			return
		}

		log.Info("User registered", slog.String("uid", user.ID.Hex()))

		w.Header().Set(authenticate.Header, token)
		render.JSON(w, r, user)
	}
}
