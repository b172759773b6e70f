package storage

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(clientID, key string) (string, bool, error) {
	query := `
        SELECT value
        FROM client_storage
        WHERE client_id = $1 AND key = $2`

	var value string
	err := s.db.Get(&value, query, clientID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Set(clientID, key, value string) error {
	query := `
        INSERT INTO client_storage (client_id, key, value, updated_at)
        VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
        ON CONFLICT (client_id, key)
        DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.Exec(query, clientID, key, value)
	return err
}

func (s *PostgresStore) Delete(clientID, key string) error {
	query := `
        DELETE FROM client_storage
        WHERE client_id = $1 AND key = $2`

	_, err := s.db.Exec(query, clientID, key)
	return err
}
