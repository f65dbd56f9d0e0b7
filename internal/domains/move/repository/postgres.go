package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) MoveRepository {
	return &postgresRepository{pool: pool}
}

// insertMoveSQL and listMovesSQL share one column order; insertArgs and
// moveRow.dest follow it.
const insertMoveSQL = `
	INSERT INTO movements (
		id, name, creator, year, difficulty, description, tags, video, image_url,
		created_by_uid, created_by_name, created_by_email
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING created_at
`

const listMovesSQL = `
	SELECT id, name, creator, year, difficulty, description, tags, video, image_url,
	       created_by_uid, created_by_name, created_by_email, created_at
	FROM movements
	ORDER BY created_at DESC
`

func (r *postgresRepository) Create(ctx context.Context, rec *model.MoveRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertMoveSQL, insertArgs(rec)...).Scan(&rec.CreatedAt); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) ListOrdered(ctx context.Context) ([]model.MoveRecord, error) {
	rows, err := r.pool.Query(ctx, listMovesSQL)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	records := []model.MoveRecord{}
	for rows.Next() {
		var row moveRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		records = append(records, row.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return records, nil
}

// insertArgs maps rec onto the movements columns. tags goes out as a plain
// []string, which pgx encodes as text[].
func insertArgs(rec *model.MoveRecord) []any {
	var uid, name, email *string
	if rec.CreatedBy != nil {
		uid, name, email = &rec.CreatedBy.UID, &rec.CreatedBy.Name, &rec.CreatedBy.Email
	}
	return []any{
		rec.ID,
		rec.Name,
		rec.Creator,
		rec.Year,
		rec.Difficulty,
		rec.Description,
		rec.Tags,
		rec.Video,
		nullString(rec.ImageURL),
		uid, name, email,
	}
}

// moveRow holds the scan targets for one movements row.
type moveRow struct {
	rec      model.MoveRecord
	imageURL *string
	byUID    *string
	byName   *string
	byEmail  *string
}

func (r *moveRow) dest() []any {
	return []any{
		&r.rec.ID,
		&r.rec.Name,
		&r.rec.Creator,
		&r.rec.Year,
		&r.rec.Difficulty,
		&r.rec.Description,
		&r.rec.Tags,
		&r.rec.Video,
		&r.imageURL,
		&r.byUID, &r.byName, &r.byEmail,
		&r.rec.CreatedAt,
	}
}

func (r *moveRow) record() model.MoveRecord {
	rec := r.rec
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if r.imageURL != nil {
		rec.ImageURL = *r.imageURL
	}
	if r.byUID != nil {
		rec.CreatedBy = &model.Author{UID: *r.byUID, Name: deref(r.byName), Email: deref(r.byEmail)}
	}
	return rec
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
