package logout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"todo_api/internal/http_server/middleware/authenticate"
	resp "todo_api/internal/lib/api/response"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Response struct {
	resp.Response
}

type UserLogouter interface {
	Logout(ctx context.Context, userID primitive.ObjectID, token string) error
}

// New godoc
// @Summary      Log out
// @Description  Revokes the token sent in x-auth. Other tokens of the same user stay valid.
// @Tags         users
// @Produce      json
// @Param        x-auth  header  string  true  "Auth token"
// @Success      200  {object}  object{status=string}
// @Failure      400  {object}  object{status=string,error=string}
// @Failure      401  {object}  object{status=string,error=string}
// @Router       /users/me/token [delete]
func New(
	log *slog.Logger,
	logouter UserLogouter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authenticate.User(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		if err := logouter.Logout(r.Context(), user.ID, authenticate.Token(r)); err != nil {
			log.Error("failed to logout user", sl.Err(err))

			if errors.Is(err, storage.ErrUnavailable) {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))

				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to logout"))

			return
		}

		log.Info("user logged out successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
