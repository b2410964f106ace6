package plugin

import "strings"

// Call is the context of one command invocation.
type Call struct {
	Sender   uint64
	Category string
	Command  string
	Args     Args

	replies Replier
}

// NewCall builds a call that replies through r.
func NewCall(sender uint64, category, command string, args Args, r Replier) *Call {
	return &Call{
		Sender:   sender,
		Category: category,
		Command:  command,
		Args:     args,
		replies:  r,
	}
}

// Reply sends text back to the caller.
func (c *Call) Reply(text string) {
	c.ReplyTo(c.Sender, text)
}

// ReplyTo sends text to an arbitrary sender.
func (c *Call) ReplyTo(sender uint64, text string) {
	if c.replies == nil {
		return
	}
	c.replies.Reply(sender, text)
}

// Args holds bound argument values in parameter order. Values are string,
// int64, float64 or []string for a rest parameter. Omitted optional
// parameters are absent.
type Args []any

// Len returns the number of bound values.
func (a Args) Len() int { return len(a) }

// Has reports whether the parameter at i was supplied.
func (a Args) Has(i int) bool { return i >= 0 && i < len(a) }

// String returns the string value at i. A rest value is joined with spaces.
func (a Args) String(i int) string {
	if !a.Has(i) {
		return ""
	}
	switch v := a[i].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	}
	return ""
}

// Int returns the integer value at i.
func (a Args) Int(i int) int64 {
	if !a.Has(i) {
		return 0
	}
	v, _ := a[i].(int64)
	return v
}

// Float returns the float value at i.
func (a Args) Float(i int) float64 {
	if !a.Has(i) {
		return 0
	}
	v, _ := a[i].(float64)
	return v
}

// Rest returns the trailing collection, if the last value is one.
func (a Args) Rest() []string {
	if len(a) == 0 {
		return nil
	}
	v, _ := a[len(a)-1].([]string)
	return v
}
