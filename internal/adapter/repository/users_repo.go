package repository

import (
	"context"
	"encoding/json"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"
)

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	pd, err := json.Marshal(u.PersonalData)
	if err != nil {
		return storeErr("encode personal data", err)
	}
	content := u.CVContent
	if content == nil {
		content = map[string]any{}
	}
	cb, err := json.Marshal(content)
	if err != nil {
		return storeErr("encode cv content", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO users (email, password_hash, provider, model, personal_data, cv_content, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.Email, u.PasswordHash, u.Provider, u.Model, pd, cb, u.CreatedAt, u.UpdatedAt)
	return storeErr("insert user", err)
}

func (s *PostgresStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var (
		u       domain.User
		pd, cvc []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT email, password_hash, provider, model, personal_data, cv_content, created_at, updated_at
		FROM users WHERE email = $1`, email).
		Scan(&u.Email, &u.PasswordHash, &u.Provider, &u.Model, &pd, &cvc, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, storeErr("select user", err)
	}
	if err := unmarshalJSON(pd, &u.PersonalData); err != nil {
		return nil, storeErr("decode personal data", err)
	}
	if err := unmarshalJSON(cvc, &u.CVContent); err != nil {
		return nil, storeErr("decode cv content", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, email, provider, model string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET provider = $2, model = $3, updated_at = now() WHERE email = $1`,
		email, provider, model)
	if err != nil {
		return storeErr("update settings", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MergePersonalData merges in the database so concurrent partial updates of
// different fields do not overwrite each other.
func (s *PostgresStore) MergePersonalData(ctx context.Context, email string, patch model.PersonalDataPatch) (model.PersonalData, error) {
	b, err := json.Marshal(patchFields(patch))
	if err != nil {
		return model.PersonalData{}, storeErr("encode patch", err)
	}

	var raw []byte
	err = s.pool.QueryRow(ctx, `UPDATE users SET personal_data = personal_data || $2::jsonb, updated_at = now()
		WHERE email = $1 RETURNING personal_data`, email, string(b)).Scan(&raw)
	if err != nil {
		return model.PersonalData{}, storeErr("merge personal data", err)
	}
	var pd model.PersonalData
	if err := unmarshalJSON(raw, &pd); err != nil {
		return model.PersonalData{}, storeErr("decode personal data", err)
	}
	return pd, nil
}

func (s *PostgresStore) UpdateCVContent(ctx context.Context, email string, content map[string]any) error {
	if content == nil {
		content = map[string]any{}
	}
	b, err := json.Marshal(content)
	if err != nil {
		return storeErr("encode cv content", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET cv_content = $2, updated_at = now() WHERE email = $1`, email, b)
	if err != nil {
		return storeErr("update cv content", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// patchFields keeps only the fields set in p, keyed by their JSON names.
func patchFields(p model.PersonalDataPatch) map[string]string {
	out := map[string]string{}
	add := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	add("full_name", p.FullName)
	add("job_title", p.JobTitle)
	add("email", p.Email)
	add("phone", p.Phone)
	add("location", p.Location)
	add("nationality", p.Nationality)
	add("website", p.Website)
	add("linkedin", p.LinkedIn)
	add("github", p.GitHub)
	return out
}
