package repository

import (
	"context"
	"time"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

const cvColumns = `id, user_email, description, job_description, link, provider, model, status, cv_optimized, error_message, created_at, updated_at`

func (s *PostgresStore) InsertCV(ctx context.Context, cv *domain.CV) error {
	opt, err := marshalJSON(optimizedValue(cv.CVOptimized))
	if err != nil {
		return storeErr("encode cv", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO cvs (`+cvColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		cv.ID, cv.UserEmail, cv.Description, cv.JobDescription, cv.Link, cv.Provider, cv.Model,
		string(cv.Status), opt, cv.ErrorMessage, cv.CreatedAt, cv.UpdatedAt)
	return storeErr("insert cv", err)
}

func (s *PostgresStore) GetCV(ctx context.Context, id uuid.UUID) (*domain.CV, error) {
	cv, err := scanCV(s.pool.QueryRow(ctx, `SELECT `+cvColumns+` FROM cvs WHERE id = $1`, id))
	if err != nil {
		return nil, storeErr("select cv", err)
	}
	return cv, nil
}

func (s *PostgresStore) ListCVs(ctx context.Context, owner string) ([]domain.CV, error) {
	return s.queryCVs(ctx, "list cvs",
		`SELECT `+cvColumns+` FROM cvs WHERE user_email = $1 ORDER BY created_at DESC`, owner)
}

// TransitionCV writes status, result and error in one conditional statement,
// so readers never observe a half-applied transition.
func (s *PostgresStore) TransitionCV(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error) {
	opt, err := marshalJSON(optimizedValue(t.Result))
	if err != nil {
		return false, storeErr("encode result", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE cvs
		SET status = $1, cv_optimized = COALESCE($2::jsonb, cv_optimized), error_message = $3, updated_at = $4
		WHERE id = $5 AND status = $6`,
		string(t.To), opt, t.ErrorMessage, t.At, id, string(t.From))
	if err != nil {
		return false, storeErr("transition cv", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) DeleteCV(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cvs WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete cv", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListStaleCVs(ctx context.Context, status domain.Status, before time.Time) ([]domain.CV, error) {
	return s.queryCVs(ctx, "list stale cvs",
		`SELECT `+cvColumns+` FROM cvs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT 100`,
		string(status), before)
}

func (s *PostgresStore) queryCVs(ctx context.Context, op, sql string, args ...any) ([]domain.CV, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	out := []domain.CV{}
	for rows.Next() {
		cv, err := scanCV(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, *cv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func scanCV(row pgx.Row) (*domain.CV, error) {
	var (
		cv     domain.CV
		status string
		opt    []byte
	)
	if err := row.Scan(&cv.ID, &cv.UserEmail, &cv.Description, &cv.JobDescription, &cv.Link, &cv.Provider, &cv.Model,
		&status, &opt, &cv.ErrorMessage, &cv.CreatedAt, &cv.UpdatedAt); err != nil {
		return nil, err
	}
	cv.Status = domain.Status(status)
	if len(opt) > 0 {
		var c model.CVContent
		if err := unmarshalJSON(opt, &c); err != nil {
			return nil, err
		}
		cv.CVOptimized = &c
	}
	return &cv, nil
}

// optimizedValue keeps a nil result as an untyped nil so it encodes as NULL.
func optimizedValue(c *model.CVContent) any {
	if c == nil {
		return nil
	}
	return c
}
