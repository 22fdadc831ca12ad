package storage

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrUnavailable  = errors.New("storage unavailable")
)

// ParseID converts a client supplied hex id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}

	return oid, nil
}
