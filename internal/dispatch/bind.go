package dispatch

import (
	"fmt"
	"strconv"

	"github.com/andrei-cloud/go_cmdhost/internal/parser"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// Bind coerces tokens into argument values for specs. Omitted trailing
// optional parameters are left out of the result; a trailing rest parameter
// collects the remaining token texts, possibly none.
func Bind(specs []plugin.ParamSpec, tokens []parser.Token) (plugin.Args, error) {
	fixed := specs
	rest := false
	if n := len(specs); n > 0 && specs[n-1].Type == plugin.Rest {
		fixed = specs[:n-1]
		rest = true
	}

	required := 0
	for _, s := range fixed {
		if !s.Optional {
			required++
		}
	}

	if len(tokens) < required || (!rest && len(tokens) > len(fixed)) {
		return nil, &BindError{
			Kind: ArityMismatch,
			Want: arity(required, len(fixed), rest),
			Got:  strconv.Itoa(len(tokens)),
		}
	}

	args := make(plugin.Args, 0, len(specs))
	for i, spec := range fixed {
		if i >= len(tokens) {
			break
		}
		v, err := coerce(spec.Type, tokens[i])
		if err != nil {
			return nil, &BindError{
				Kind:  TypeMismatch,
				Index: i,
				Want:  string(spec.Type),
				Got:   tokens[i].Kind.String(),
			}
		}
		args = append(args, v)
	}

	// the rest slot exists only once every fixed slot is filled.
	if rest && len(args) == len(fixed) {
		collected := []string{}
		if len(tokens) > len(fixed) {
			collected = parser.Texts(tokens[len(fixed):])
		}
		args = append(args, collected)
	}

	return args, nil
}

func coerce(t plugin.ParamType, tok parser.Token) (any, error) {
	switch t {
	case plugin.Int:
		if tok.Kind != parser.Int {
			return nil, fmt.Errorf("not an int: %q", tok.Text)
		}
		return tok.Int, nil
	case plugin.Float:
		switch tok.Kind {
		case parser.Float:
			return tok.Float, nil
		case parser.Int:
			return float64(tok.Int), nil
		}
		return nil, fmt.Errorf("not a float: %q", tok.Text)
	default:
		return tok.Text, nil
	}
}

func arity(required, fixed int, rest bool) string {
	switch {
	case rest:
		return fmt.Sprintf("at least %d", required)
	case required == fixed:
		return strconv.Itoa(required)
	default:
		return fmt.Sprintf("%d to %d", required, fixed)
	}
}
