package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const AccessAuth = "auth"

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email    string             `bson:"email" json:"email" validate:"required,email"`
	Password string             `bson:"password" json:"-" validate:"required,min=6,bcryptmax"`
	Tokens   []Token            `bson:"tokens" json:"-" validate:"dive"`
}

type Token struct {
	Access string `bson:"access" json:"access" validate:"required"`
	Token  string `bson:"token" json:"token" validate:"required"`
}

// Todo.CompletedAt is milliseconds since the Unix epoch and nil while not completed.
type Todo struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Text        string             `bson:"text" json:"text" validate:"required,min=1"`
	Completed   bool               `bson:"completed" json:"completed"`
	CompletedAt *int64             `bson:"completedAt" json:"completedAt"`
	Creator     primitive.ObjectID `bson:"_creator" json:"_creator" validate:"required"`
}

// TodoPatch is the whitelisted part of an update request. A nil Text leaves the text unchanged.
type TodoPatch struct {
	Text      *string
	Completed bool
}

// TodoUpdate is what gets written: the patch plus the derived completion stamp.
type TodoUpdate struct {
	Text        *string
	Completed   bool
	CompletedAt *int64
}

// Notice is published to the message broker after a user registers.
type Notice struct {
	Email   string    `json:"to"`
	UserID  string    `json:"user_id"`
	Purpose string    `json:"purpose"`
	SentAt  time.Time `json:"sent_at"`
}

// HasToken reports whether the user holds token with the given access scope.
func (u *User) HasToken(access, token string) bool {
	for _, t := range u.Tokens {
		if t.Access == access && t.Token == token {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// Complete derives the completion fields: completed=true stamps now, false clears the stamp.
func (t *Todo) Complete(completed bool, now time.Time) {
	if !completed {
		t.Completed = false
		t.CompletedAt = nil
		return
	}

	ms := now.UnixMilli()
	t.Completed = true
	t.CompletedAt = &ms
}
