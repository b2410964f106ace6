package plugin

import "context"

// ParamType is the declared type of a command parameter.
type ParamType string

// Parameter types understood by the binder.
const (
	String ParamType = "string"
	Int    ParamType = "int"
	Float  ParamType = "float"
	// Rest collects every remaining token into one string list.
	Rest ParamType = "rest"
)

// ParamSpec declares one command parameter.
type ParamSpec struct {
	Name        string    `json:"name,omitempty"`
	Type        ParamType `json:"type"`
	Optional    bool      `json:"optional,omitempty"`
	Description string    `json:"description,omitempty"`
}

// CategorySpec declares a category. Name falls back to the type name of
// Instance when empty.
type CategorySpec struct {
	Name        string
	Description string
	Auth        string
	Instance    any
}

// CommandSpec declares a command. Name falls back to the handler function
// name when empty.
type CommandSpec struct {
	Name        string
	Description string
	Auth        string
	Params      []ParamSpec
}

// Handler runs a resolved command.
type Handler func(ctx context.Context, call *Call) error

// Registrar collects the categories of one plugin.
type Registrar interface {
	Category(spec CategorySpec) CategoryBuilder
}

// CategoryBuilder adds commands to a category.
type CategoryBuilder interface {
	Command(spec CommandSpec, h Handler) CategoryBuilder
}
