package authenticate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "todo_api/internal/lib/api/response"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// Header carries the token on requests and on register/login responses.
const Header = "x-auth"

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (models.User, error)
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// New stops the chain with 401 unless the x-auth token resolves to a user.
func New(log *slog.Logger, verifier TokenVerifier, timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authenticate"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := r.Header.Get(Header)
			if token == "" {
				log.Info("missing auth token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("unauthorized"))

				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			user, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				if errors.Is(err, storage.ErrUnavailable) {
					log.Error("token check timed out", sl.Err(err))

					render.Status(r, http.StatusServiceUnavailable)
					render.JSON(w, r, resp.Error("service unavailable"))

					return
				}

				log.Info("token rejected", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("unauthorized"))

				return
			}

			reqCtx := context.WithValue(r.Context(), userKey, user)
			reqCtx = context.WithValue(reqCtx, tokenKey, token)

			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	}
}

// User returns the caller resolved by New. ok is false outside an authenticated route.
func User(r *http.Request) (models.User, bool) {
	u, ok := r.Context().Value(userKey).(models.User)
	return u, ok
}

func Token(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey).(string)
	return t
}
