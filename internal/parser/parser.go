// Package parser splits raw command text into typed tokens.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a token.
type Kind int

// Token kinds.
const (
	String Kind = iota
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "string"
	}
}

// Token is one unit of command input. Text always holds the unquoted source.
type Token struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
}

// a quoted run needs at least one character between the quotes.
var tokenPattern = regexp.MustCompile(`"[^"]+"|\S+`)

// Parse tokenizes raw. It never fails; unparseable numbers become strings.
func Parse(raw string) []Token {
	raw = strings.TrimLeft(strings.TrimSpace(raw), "/")

	matches := tokenPattern.FindAllString(raw, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, classify(strings.Trim(m, `"`)))
	}

	return tokens
}

// Texts returns the source text of every token.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func classify(text string) Token {
	if strings.ContainsAny(text, ".eE") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Token{Kind: Float, Text: text, Float: f}
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return Token{Kind: Int, Text: text, Int: n, Float: float64(n)}
	}
	// integers beyond int64 are still numbers.
	if errors.Is(err, strconv.ErrRange) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Token{Kind: Float, Text: text, Float: f}
		}
	}

	return Token{Kind: String, Text: text}
}
