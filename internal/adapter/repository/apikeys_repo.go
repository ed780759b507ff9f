package repository

import (
	"context"

	"cv-optimizer/internal/domain"
)

func (s *PostgresStore) UpsertAPIKey(ctx context.Context, rec *domain.APIKeyRecord) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO api_keys (user_email, provider, encrypted_key, last_chars, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		ON CONFLICT (user_email, provider) DO UPDATE SET encrypted_key = EXCLUDED.encrypted_key, last_chars = EXCLUDED.last_chars, updated_at = EXCLUDED.updated_at`,
		rec.UserEmail, rec.Provider, rec.EncryptedKey, rec.LastChars)
	return storeErr("upsert api key", err)
}

func (s *PostgresStore) GetAPIKey(ctx context.Context, email, provider string) (*domain.APIKeyRecord, error) {
	var rec domain.APIKeyRecord
	err := s.pool.QueryRow(ctx, `SELECT user_email, provider, encrypted_key, last_chars, created_at, updated_at
		FROM api_keys WHERE user_email = $1 AND provider = $2`, email, provider).
		Scan(&rec.UserEmail, &rec.Provider, &rec.EncryptedKey, &rec.LastChars, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, storeErr("select api key", err)
	}
	return &rec, nil
}

func (s *PostgresStore) DeleteAPIKey(ctx context.Context, email, provider string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE user_email = $1 AND provider = $2`, email, provider)
	if err != nil {
		return storeErr("delete api key", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
