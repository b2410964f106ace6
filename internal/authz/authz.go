// Package authz answers group membership questions for the dispatcher.
// Memberships come from a SQLite store and from static configuration.
package authz

import (
	"context"
	"strings"
)

// Authorizer reports whether sender belongs to group.
type Authorizer interface {
	IsMember(ctx context.Context, group string, sender uint64) (bool, error)
}

// Static holds memberships declared in configuration.
type Static map[string][]uint64

// NewStatic normalizes group names of groups.
func NewStatic(groups map[string][]uint64) Static {
	s := make(Static, len(groups))
	for g, ids := range groups {
		key := normalize(g)
		s[key] = append(s[key], ids...)
	}
	return s
}

// IsMember implements Authorizer.
func (s Static) IsMember(_ context.Context, group string, sender uint64) (bool, error) {
	for _, id := range s[normalize(group)] {
		if id == sender {
			return true, nil
		}
	}
	return false, nil
}

// Chain grants membership when any authorizer does. Errors stop the chain.
type Chain []Authorizer

// IsMember implements Authorizer.
func (c Chain) IsMember(ctx context.Context, group string, sender uint64) (bool, error) {
	for _, a := range c {
		if a == nil {
			continue
		}
		ok, err := a.IsMember(ctx, group, sender)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func normalize(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}
