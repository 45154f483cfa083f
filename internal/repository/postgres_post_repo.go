package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/postpay/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// 投稿者が退会済みの場合はLEFT JOINでNULLになる
const postWithAuthorSelect = `SELECT p.id, p.content, p.author_id, p.likes, p.dislikes, p.created_at, p.updated_at,
	u.id, u.full_name, u.email
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, content, author_id, likes, dislikes, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(
		&post.ID, &post.Content, &post.AuthorID,
		pq.Array(&post.Likes), pq.Array(&post.Dislikes),
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	normalizeReactions(post)
	return post, nil
}

// FindWithAuthor は指定IDの投稿を投稿者プロフィール付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	row := r.db.QueryRowContext(ctx, postWithAuthorSelect+` WHERE p.id = $1`, id)
	pwa, err := scanPostWithAuthor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post with author: %w", err)
	}
	return pwa, nil
}

// List は投稿一覧を作成日時の降順で投稿者プロフィール付きで返す。
// limitが0以下の場合は全件を返す。
func (r *PostgresPostRepo) List(ctx context.Context, limit int) ([]model.PostWithAuthor, error) {
	query := postWithAuthorSelect + ` ORDER BY p.created_at DESC, p.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []model.PostWithAuthor{}
	for rows.Next() {
		pwa, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *pwa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	normalizeReactions(post)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, content, author_id, likes, dislikes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.Content, post.AuthorID,
		pq.Array(post.Likes), pq.Array(post.Dislikes),
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// UpdateContent は投稿本文を更新する。
func (r *PostgresPostRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}
	return expectOneRow(result, "post", id)
}

// UpdateReactions は投稿のlikes/dislikes配列を丸ごと書き換える。
func (r *PostgresPostRepo) UpdateReactions(ctx context.Context, id string, likes, dislikes []string) error {
	if likes == nil {
		likes = []string{}
	}
	if dislikes == nil {
		dislikes = []string{}
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET likes = $2, dislikes = $3, updated_at = NOW() WHERE id = $1`,
		id, pq.Array(likes), pq.Array(dislikes),
	)
	if err != nil {
		return fmt.Errorf("failed to update post reactions: %w", err)
	}
	return expectOneRow(result, "post", id)
}

// Delete は指定IDの投稿を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return expectOneRow(result, "post", id)
}

// RemoveUserReactions は全投稿のlikes/dislikesから指定ユーザーを取り除く。
func (r *PostgresPostRepo) RemoveUserReactions(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts
		 SET likes = array_remove(likes, $1), dislikes = array_remove(dislikes, $1)
		 WHERE $1 = ANY(likes) OR $1 = ANY(dislikes)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove user reactions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostWithAuthor(s rowScanner) (*model.PostWithAuthor, error) {
	pwa := &model.PostWithAuthor{}
	var authorID, fullName, email sql.NullString
	err := s.Scan(
		&pwa.ID, &pwa.Content, &pwa.AuthorID,
		pq.Array(&pwa.Likes), pq.Array(&pwa.Dislikes),
		&pwa.CreatedAt, &pwa.UpdatedAt,
		&authorID, &fullName, &email,
	)
	if err != nil {
		return nil, err
	}
	normalizeReactions(&pwa.Post)
	if authorID.Valid {
		pwa.Author = &model.Author{
			ID:       authorID.String,
			FullName: fullName.String,
			Email:    email.String,
		}
	}
	return pwa, nil
}

// normalizeReactions はnil配列を空配列に揃える。JSONで null ではなく [] を返すため。
func normalizeReactions(p *model.Post) {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Dislikes == nil {
		p.Dislikes = []string{}
	}
}

func expectOneRow(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
