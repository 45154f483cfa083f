// Package post は投稿の作成・編集・削除とリアクションのトグルを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/postpay/internal/metrics"
	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
	"github.com/hitoshi/postpay/internal/security"
)

// Service は投稿のビジネスロジックを提供する。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

// List は全投稿を新しい順に投稿者プロフィール付きで返す。
func (s *Service) List(ctx context.Context) ([]model.PostWithAuthor, error) {
	return s.Recent(ctx, 0)
}

// Recent は新しい順に最大limit件の投稿を返す。limitが0以下なら全件。
func (s *Service) Recent(ctx context.Context, limit int) ([]model.PostWithAuthor, error) {
	posts, err := s.postRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []model.PostWithAuthor{}
	}
	return posts, nil
}

// Get は指定IDの投稿を投稿者プロフィール付きで返す。
func (s *Service) Get(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	post, err := s.postRepo.FindWithAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	return post, nil
}

// Create は投稿を作成する。本文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, authorID, content string) (*model.Post, error) {
	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := &model.Post{
		ID:        uuid.New().String(),
		Content:   content,
		AuthorID:  authorID,
		Likes:     []string{},
		Dislikes:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.metrics.RecordPostCreated()
	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
	)
	return post, nil
}

// Update は投稿本文を更新する。投稿者本人以外はFORBIDDENを返し何も変更しない。
func (s *Service) Update(ctx context.Context, userID, id, content string) (*model.Post, error) {
	post, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	content, err = s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.postRepo.UpdateContent(ctx, id, content, now); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	post.Content = content
	post.UpdatedAt = now
	return post, nil
}

// Delete は投稿を削除する。投稿者本人以外はFORBIDDENを返し何も変更しない。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.findOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	slog.Info("post deleted",
		slog.String("post_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// React はユーザーのリアクションをトグルし、更新後の投稿を返す。
// 未知のリアクション種別は投稿を読み込む前に拒否する。
// 同じ投稿への同時トグルは後勝ちになる。
func (s *Service) React(ctx context.Context, userID, id, kind string) (*model.Post, ReactionOutcome, error) {
	reaction := model.ReactionType(kind)
	if !reaction.Valid() {
		return nil, "", model.NewInvalidReactionError(kind)
	}
	if err := validateID(id); err != nil {
		return nil, "", err
	}

	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, "", model.NewPostNotFoundError(id)
	}

	likes, dislikes, outcome := ToggleReaction(post.Likes, post.Dislikes, userID, reaction)
	if err := s.postRepo.UpdateReactions(ctx, id, likes, dislikes); err != nil {
		return nil, "", fmt.Errorf("failed to update reactions: %w", err)
	}

	post.Likes = likes
	post.Dislikes = dislikes
	s.metrics.RecordReaction(string(reaction), string(outcome))
	return post, outcome, nil
}

// findOwned は投稿を取得し、userIDが投稿者であることを確認する。
func (s *Service) findOwned(ctx context.Context, userID, id string) (*model.Post, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	if post.AuthorID != userID {
		slog.Warn("post ownership mismatch",
			slog.String("post_id", id),
			slog.String("user_id", userID),
		)
		return nil, model.NewForbiddenError()
	}
	return post, nil
}

func (s *Service) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", model.NewContentRequiredError()
	}
	if s.sanitizer != nil {
		content = s.sanitizer.Sanitize(content)
	}
	if content == "" {
		return "", model.NewContentRequiredError()
	}
	return content, nil
}

func validateID(id string) error {
	return model.ValidateID(id)
}
