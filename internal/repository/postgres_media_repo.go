package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/postpay/internal/model"
)

// PostgresMediaRepo はPostgreSQLを使用したメディアリポジトリ。
type PostgresMediaRepo struct {
	db *sql.DB
}

// NewPostgresMediaRepo はPostgresMediaRepoを生成する。
func NewPostgresMediaRepo(db *sql.DB) *PostgresMediaRepo {
	return &PostgresMediaRepo{db: db}
}

// Create はメディアのメタデータを作成する。
func (r *PostgresMediaRepo) Create(ctx context.Context, media *model.Media) error {
	var ownerID sql.NullString
	if media.OwnerID != "" {
		ownerID = sql.NullString{String: media.OwnerID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media (id, owner_id, filename, original_name, content_type, size, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		media.ID, ownerID, media.Filename, media.OriginalName,
		media.ContentType, media.Size, string(media.Source), media.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// FindByID は指定IDのメディアを取得する。見つからない場合はnilを返す。
func (r *PostgresMediaRepo) FindByID(ctx context.Context, id string) (*model.Media, error) {
	media := &model.Media{}
	var ownerID sql.NullString
	var source string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, filename, original_name, content_type, size, source, created_at
		 FROM media WHERE id = $1`,
		id,
	).Scan(
		&media.ID, &ownerID, &media.Filename, &media.OriginalName,
		&media.ContentType, &media.Size, &source, &media.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find media by ID: %w", err)
	}
	media.OwnerID = ownerID.String
	media.Source = model.MediaSource(source)
	return media, nil
}

// compile-time interface check
var _ MediaRepository = (*PostgresMediaRepo)(nil)
