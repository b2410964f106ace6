package dispatch

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBind            = errors.New("bind failed")
	ErrHandler         = errors.New("handler failed")
	ErrTimeout         = errors.New("handler timed out")
)

// UnknownCategoryError reports a category token that prefixes no category.
type UnknownCategoryError struct {
	Category string
}

func (e UnknownCategoryError) Error() string {
	return "Unknown category: " + e.Category
}

func (e UnknownCategoryError) Is(target error) bool { return target == ErrUnknownCategory }

// UnknownCommandError reports a command token that prefixes no command of
// the resolved category. An empty Command means the token was missing.
type UnknownCommandError struct {
	Command  string
	Category string
}

func (e UnknownCommandError) Error() string {
	if e.Command == "" {
		return "Missing command on category: " + e.Category
	}
	return fmt.Sprintf("Unknown command: %s on category: %s", e.Command, e.Category)
}

func (e UnknownCommandError) Is(target error) bool { return target == ErrUnknownCommand }

// UnauthorizedError reports a sender outside the required group.
type UnauthorizedError struct {
	Category string
	Command  string
	Group    string
	Sender   uint64
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("You are not authorized to use /%s %s", e.Category, e.Command)
}

func (e UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// BindErrorKind classifies a bind failure.
type BindErrorKind int

// Bind failure kinds.
const (
	ArityMismatch BindErrorKind = iota
	TypeMismatch
)

func (k BindErrorKind) String() string {
	if k == TypeMismatch {
		return "type mismatch"
	}
	return "arity mismatch"
}

// BindError reports tokens that do not fit the parameter list.
type BindError struct {
	Kind  BindErrorKind
	Index int
	Want  string
	Got   string
}

func (e *BindError) Error() string {
	if e.Kind == TypeMismatch {
		return fmt.Sprintf("type mismatch at argument %d: want %s, got %s", e.Index, e.Want, e.Got)
	}
	return fmt.Sprintf("arity mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *BindError) Is(target error) bool { return target == ErrBind }

// HandlerError wraps a failure raised inside a command handler.
type HandlerError struct {
	Category string
	Command  string
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Category, e.Command, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func (e *HandlerError) Is(target error) bool { return target == ErrHandler }

// Message returns the one-line text reported to the sender.
func (e *HandlerError) Message() string {
	if errors.Is(e.Err, ErrTimeout) {
		return fmt.Sprintf("Error: /%s %s timed out", e.Category, e.Command)
	}
	return fmt.Sprintf("Error: /%s %s failed", e.Category, e.Command)
}
