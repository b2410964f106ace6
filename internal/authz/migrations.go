package authz

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Memberships table - maps a group name to a remote sender id
		`CREATE TABLE IF NOT EXISTS memberships (
			group_name TEXT NOT NULL,
			sender TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_name, sender)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_memberships_sender ON memberships(sender)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
