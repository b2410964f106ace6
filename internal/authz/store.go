package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

// ErrEmptyGroup is returned when a membership change names no group.
var ErrEmptyGroup = errors.New("group name is empty")

// Member is one stored membership.
type Member struct {
	Group  string
	Sender uint64
}

// Store persists group memberships in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the membership database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Grant adds sender to group. Granting twice is not an error.
func (s *Store) Grant(ctx context.Context, group string, sender uint64) error {
	group = normalize(group)
	if group == "" {
		return ErrEmptyGroup
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO memberships (group_name, sender) VALUES (?, ?)`,
		group, senderKey(sender),
	)
	if err != nil {
		return fmt.Errorf("failed to grant %s: %w", group, err)
	}
	return nil
}

// Revoke removes sender from group and reports whether it was a member.
func (s *Store) Revoke(ctx context.Context, group string, sender uint64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE group_name = ? AND sender = ?`,
		normalize(group), senderKey(sender),
	)
	if err != nil {
		return false, fmt.Errorf("failed to revoke %s: %w", group, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsMember implements Authorizer.
func (s *Store) IsMember(ctx context.Context, group string, sender uint64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM memberships WHERE group_name = ? AND sender = ?`,
		normalize(group), senderKey(sender),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query membership: %w", err)
	}
	return true, nil
}

// Members lists memberships of group, or of every group when group is empty.
func (s *Store) Members(ctx context.Context, group string) ([]Member, error) {
	query := `SELECT group_name, sender FROM memberships ORDER BY group_name, rowid`
	args := []any{}
	if g := normalize(group); g != "" {
		query = `SELECT group_name, sender FROM memberships WHERE group_name = ? ORDER BY rowid`
		args = append(args, g)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var (
			m   Member
			raw string
		)
		if err := rows.Scan(&m.Group, &raw); err != nil {
			return nil, err
		}
		m.Sender, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt sender %q: %w", raw, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// senders are kept as text; SQLite integers are signed.
func senderKey(sender uint64) string {
	return strconv.FormatUint(sender, 10)
}
