package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInternal = errors.New("internal error")

	// * Data errors.
	ErrDataNotFound    = errors.New("data not found")
	ErrNoUpdatedData   = errors.New("no data to update")
	ErrConflictingData = errors.New("data conflicts with existing data in unique column")

	// * Communication errors.
	ErrBadRequest = errors.New("error parsing request")

	// * Authority errors.
	ErrTokenCreation              = errors.New("error creating token")
	ErrExpiredToken               = errors.New("access token has expired")
	ErrInvalidToken               = errors.New("access token is invalid")
	ErrEmptyAuthorizationHeader   = errors.New("authorization header is not provided")
	ErrInvalidAuthorizationHeader = errors.New("authorization header format is invalid")
	ErrInvalidAuthorizationType   = errors.New("authorization type is not supported")
	ErrUnauthorized               = errors.New("user is unauthorized to access the resource")
	ErrNotAuthorized              = errors.New("user is not allowed to access the resource")

	// * Business errors.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a business failure tagged with the kind of resource it concerns.
// Kind is one of the sentinels above, so errors.Is matches against it.
type Error struct {
	Kind     error
	Resource string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, resource string, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Resource: resource,
		Message:  fmt.Sprintf(format, args...),
	}
}

func NotFound(resource string, format string, args ...any) *Error {
	return newError(ErrDataNotFound, resource, format, args...)
}

func InvalidArgument(resource string, format string, args ...any) *Error {
	return newError(ErrInvalidArgument, resource, format, args...)
}

func NotAuthorized(resource string, format string, args ...any) *Error {
	return newError(ErrNotAuthorized, resource, format, args...)
}
