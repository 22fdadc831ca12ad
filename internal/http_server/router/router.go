// Package router assembles the chi mux: request id, logging and panic recovery on every
// route, per-IP limits on the credential endpoints and x-auth authentication on everything
// under /users/me and /todos.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"todo_api/internal/http_server/handlers/health"
	"todo_api/internal/http_server/handlers/todos/create"
	"todo_api/internal/http_server/handlers/todos/get"
	"todo_api/internal/http_server/handlers/todos/list"
	"todo_api/internal/http_server/handlers/todos/remove"
	"todo_api/internal/http_server/handlers/todos/update"
	"todo_api/internal/http_server/handlers/users/login"
	"todo_api/internal/http_server/handlers/users/logout"
	"todo_api/internal/http_server/handlers/users/register"
	"todo_api/internal/http_server/handlers/users/whoami"
	"todo_api/internal/http_server/middleware/authenticate"
	"todo_api/internal/middleware/ratelimit"
	"todo_api/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Auth interface {
	RegisterNewUser(ctx context.Context, email, pass string) (models.User, string, error)
	Login(ctx context.Context, email, password string) (models.User, string, error)
	VerifyToken(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, userID primitive.ObjectID, token string) error
}

type Todos interface {
	Create(ctx context.Context, owner primitive.ObjectID, text string) (models.Todo, error)
	List(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error)
	Get(ctx context.Context, owner primitive.ObjectID, id string) (models.Todo, error)
	Update(ctx context.Context, owner primitive.ObjectID, id string, patch models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, owner primitive.ObjectID, id string) (models.Todo, error)
}

const defaultAuthTimeout = 5 * time.Second

type Options struct {
	Env       string
	Version   string
	RateLimit bool
	// AuthTimeout bounds the token lookup done before every authenticated request.
	AuthTimeout time.Duration
}

func New(
	log *slog.Logger,
	authService Auth,
	todoService Todos,
	pinger health.Pinger,
	opts Options,
) *chi.Mux {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTimeout
	}

	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", health.New(log, pinger, opts.Env, opts.Version))

	r.Route("/users", func(r chi.Router) {
		r.With(limit(opts.RateLimit, ratelimit.Register)).
			Post("/", register.New(log, validate, authService))
		r.With(limit(opts.RateLimit, ratelimit.Login)).
			Post("/login", login.New(log, validate, authService))

		r.Group(func(r chi.Router) {
			r.Use(authenticate.New(log, authService, opts.AuthTimeout))

			r.Get("/me", whoami.New(log))
			r.Delete("/me/token", logout.New(log, authService))
		})
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(authenticate.New(log, authService, opts.AuthTimeout))

		r.Post("/", create.New(log, todoService))
		r.Get("/", list.New(log, todoService))
		r.Get("/{id}", get.New(log, todoService))
		r.Patch("/{id}", update.New(log, todoService))
		r.Delete("/{id}", remove.New(log, todoService))
	})

	return r
}

func limit(enabled bool, mw func() func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw()
}
