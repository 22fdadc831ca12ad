package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"todo_api/internal/lib/jwt"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserExists         = errors.New("user already exists")
)

const noticeWelcome = "welcome"

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	notifier    NoticeSender
	secret      string
	tokenTTL    time.Duration
	hashCost    int
}

type UserSaver interface {
	SaveUser(ctx context.Context, u models.User) (models.User, error)
	AddToken(ctx context.Context, id primitive.ObjectID, token models.Token) error
	RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByToken(ctx context.Context, id primitive.ObjectID, access, token string) (models.User, error)
}

type NoticeSender interface {
	SendNotice(ctx context.Context, notice models.Notice) error
}

type Option func(*Auth)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(a *Auth) {
		a.hashCost = cost
	}
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	notifier NoticeSender,
	secret string,
	tokenTTL time.Duration,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		notifier:    notifier,
		secret:      secret,
		tokenTTL:    tokenTTL,
		hashCost:    bcrypt.DefaultCost,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// HashPassword returns a salted bcrypt hash; two calls on the same input differ.
func HashPassword(plaintext string) (string, error) {
	return hashPassword(plaintext, bcrypt.DefaultCost)
}

func hashPassword(plaintext string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword never fails loudly: a malformed hash is just a mismatch.
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func (a *Auth) RegisterNewUser(
	ctx context.Context,
	email string,
	pass string,
) (models.User, string, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("registering new user")

	user := models.User{
		Email:    models.NormalizeEmail(email),
		Password: pass,
	}

	if err := models.ValidateUser(user); err != nil {
		log.Info("user rejected by validation", sl.Err(err))

		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.saveUser(ctx, user, true)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return models.User{}, "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.IssueToken(ctx, user.ID)
	if err != nil {
		// The user is already stored and holds no token; a retry gets ErrUserExists and
		// the user has to log in instead.
		log.Error("user saved without a token",
			slog.String("uid", user.ID.Hex()),
			sl.Err(err),
		)

		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	notice := models.Notice{
		Email:   user.Email,
		UserID:  user.ID.Hex(),
		Purpose: noticeWelcome,
		SentAt:  time.Now(),
	}
	if err := a.notifier.SendNotice(ctx, notice); err != nil {
		log.Error("failed to publish registration notice", sl.Err(err))
	}

	log.Info("user registered", slog.String("uid", user.ID.Hex()))

	return user, token, nil
}

// saveUser persists a new user. The plaintext password is hashed only when passwordChanged
// is set, so callers that did not touch the password never hash a hash.
func (a *Auth) saveUser(ctx context.Context, user models.User, passwordChanged bool) (models.User, error) {
	const op = "auth.saveUser"

	if passwordChanged {
		hash, err := hashPassword(user.Password, a.hashCost)
		if err != nil {
			return models.User{}, fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		user.Password = hash
	}

	saved, err := a.usrSaver.SaveUser(ctx, user)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (models.User, string, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.FindByCredentials(ctx, email, password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.IssueToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))

		return models.User{}, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.Hex()))

	return user, token, nil
}

// FindByCredentials does not reveal whether the email or the password was wrong.
func (a *Auth) FindByCredentials(ctx context.Context, email, password string) (models.User, error) {
	const op = "auth.FindByCredentials"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")

			return models.User{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !VerifyPassword(password, user.Password) {
		log.Info("invalid credentials", slog.String("uid", user.ID.Hex()))

		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken returns only after the token has been stored on the user.
func (a *Auth) IssueToken(ctx context.Context, userID primitive.ObjectID) (string, error) {
	const op = "auth.IssueToken"

	token, err := jwt.NewToken(userID.Hex(), models.AccessAuth, a.secret, a.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	err = a.usrSaver.AddToken(ctx, userID, models.Token{
		Access: models.AccessAuth,
		Token:  token,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// VerifyToken checks the signature before any lookup, then requires the token to still be
// listed on its owner.
func (a *Auth) VerifyToken(ctx context.Context, token string) (models.User, error) {
	const op = "auth.VerifyToken"

	claims, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if claims.Access != models.AccessAuth {
		return models.User{}, fmt.Errorf("%s: %w: unexpected access %q", op, ErrInvalidToken, claims.Access)
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	user, err := a.usrProvider.UserByToken(ctx, userID, models.AccessAuth, token)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w: revoked or unknown user", op, ErrInvalidToken)
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) RevokeToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	const op = "auth.RevokeToken"

	if err := a.usrSaver.RemoveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Logout revokes only the token used for the current request.
func (a *Auth) Logout(
	ctx context.Context,
	userID primitive.ObjectID,
	token string,
) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
	)

	if err := a.RevokeToken(ctx, userID, token); err != nil {
		log.Error("failed to revoke token", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful", slog.String("uid", userID.Hex()))

	return nil
}
