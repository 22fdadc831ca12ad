package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"todo_api/internal/lib/jwt"
	"todo_api/internal/models"
	"todo_api/internal/storage/memory"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeNotifier struct {
	notices []models.Notice
	err     error
}

func (f *fakeNotifier) SendNotice(_ context.Context, n models.Notice) error {
	f.notices = append(f.notices, n)
	return f.err
}

// countingProvider records how often the store is consulted during token checks.
type countingProvider struct {
	*memory.Store
	tokenLookups int
}

func (c *countingProvider) UserByToken(ctx context.Context, id primitive.ObjectID, access, token string) (models.User, error) {
	c.tokenLookups++
	return c.Store.UserByToken(ctx, id, access, token)
}

func newTestAuth(t *testing.T) (*Auth, *memory.Store, *fakeNotifier) {
	t.Helper()

	store := memory.New()
	notifier := &fakeNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, store, store, notifier, testSecret, 0, WithHashCost(bcrypt.MinCost)), store, notifier
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("secret1")
	require.NoError(t, err)
	b, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, "secret1", a)
	assert.True(t, VerifyPassword("secret1", a))
	assert.True(t, VerifyPassword("secret1", b))
	assert.False(t, VerifyPassword("secret2", a))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifyPassword("secret1", ""))
	assert.False(t, VerifyPassword("secret1", "secret1"))
	assert.False(t, VerifyPassword("", "$2a$10$short"))
}

func TestRegisterNewUser(t *testing.T) {
	a, store, notifier := newTestAuth(t)
	ctx := context.Background()

	user, token, err := a.RegisterNewUser(ctx, "  a@b.com  ", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "a@b.com", user.Email)

	stored, err := store.User(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.True(t, VerifyPassword("secret1", stored.Password))
	assert.True(t, stored.HasToken(models.AccessAuth, token))

	got, err := a.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "a@b.com", notifier.notices[0].Email)
	assert.Equal(t, user.ID.Hex(), notifier.notices[0].UserID)
}

func TestRegisterNewUser_Duplicate(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, _, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, _, err = a.RegisterNewUser(ctx, "a@b.com", "secret2")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterNewUser_Validation(t *testing.T) {
	a, store, _ := newTestAuth(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, pass string }{
		{"", "secret1"},
		{"nope", "secret1"},
		{"a@b.com", "123"},
		// 60 runes but 120 bytes, past what bcrypt accepts.
		{"a@b.com", strings.Repeat("é", 60)},
	} {
		_, _, err := a.RegisterNewUser(ctx, tc.email, tc.pass)

		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr, "email %q pass %q", tc.email, tc.pass)
	}

	n, err := store.DeleteUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegisterNewUser_NotifierFailureIsNotFatal(t *testing.T) {
	a, _, notifier := newTestAuth(t)
	notifier.err = errors.New("broker down")

	_, token, err := a.RegisterNewUser(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

type failingTokenSaver struct {
	*memory.Store
}

func (failingTokenSaver) AddToken(context.Context, primitive.ObjectID, models.Token) error {
	return errors.New("write failed")
}

func TestRegisterNewUser_TokenFailureLogsStoredUser(t *testing.T) {
	store := memory.New()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	a := New(log, failingTokenSaver{Store: store}, store, &fakeNotifier{}, testSecret, 0, WithHashCost(bcrypt.MinCost))
	ctx := context.Background()

	_, token, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.Error(t, err)
	assert.Empty(t, token)

	stored, err := store.User(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Empty(t, stored.Tokens)

	assert.Contains(t, buf.String(), "user saved without a token")
	assert.Contains(t, buf.String(), stored.ID.Hex())
}

func TestLogin(t *testing.T) {
	a, store, _ := newTestAuth(t)
	ctx := context.Background()

	registered, first, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	user, second, err := a.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEqual(t, first, second)

	stored, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tokens, 2)
}

func TestLogin_WrongPasswordIssuesNoToken(t *testing.T) {
	a, store, _ := newTestAuth(t)
	ctx := context.Background()

	user, _, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "a@b.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, "missing@b.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tokens, 1)
}

func TestVerifyToken_BadSignatureSkipsStore(t *testing.T) {
	store := memory.New()
	provider := &countingProvider{Store: store}
	a := New(slog.New(slog.NewTextHandler(io.Discard, nil)), store, provider, &fakeNotifier{}, testSecret, 0, WithHashCost(bcrypt.MinCost))
	ctx := context.Background()

	user, _, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	forged, err := jwt.NewToken(user.ID.Hex(), models.AccessAuth, "another-secret", 0)
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", forged} {
		_, err := a.VerifyToken(ctx, tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	}

	assert.Zero(t, provider.tokenLookups)
}

func TestVerifyToken_WrongScopeOrUnknownUser(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, _, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	otherScope, err := jwt.NewToken(user.ID.Hex(), "reset", testSecret, 0)
	require.NoError(t, err)
	_, err = a.VerifyToken(ctx, otherScope)
	require.ErrorIs(t, err, ErrInvalidToken)

	notAnID, err := jwt.NewToken("not-an-object-id", models.AccessAuth, testSecret, 0)
	require.NoError(t, err)
	_, err = a.VerifyToken(ctx, notAnID)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Validly signed but never stored on any user.
	unknown, err := jwt.NewToken(primitive.NewObjectID().Hex(), models.AccessAuth, testSecret, 0)
	require.NoError(t, err)
	_, err = a.VerifyToken(ctx, unknown)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_LapsedTTL(t *testing.T) {
	t.Parallel()

	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(log, store, store, &fakeNotifier{}, testSecret, time.Second, WithHashCost(bcrypt.MinCost))
	ctx := context.Background()

	_, token, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	_, err = a.VerifyToken(ctx, token)
	require.NoError(t, err)

	// exp is stored with one-second precision.
	time.Sleep(2 * time.Second)

	_, err = a.VerifyToken(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestLogout_RevokesOnlyCurrentToken(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, first, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	_, second, err := a.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx, user.ID, first))

	_, err = a.VerifyToken(ctx, first)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.VerifyToken(ctx, second)
	require.NoError(t, err)
}

func TestFindByCredentials(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()

	registered, _, err := a.RegisterNewUser(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	user, err := a.FindByCredentials(ctx, " a@b.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = a.FindByCredentials(ctx, "a@b.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
