// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
)

// defaultListLimit はユーザー一覧の最大件数。
const defaultListLimit = 100

// ReactionRemover は全投稿からユーザーのリアクションを取り除くインターフェース。
type ReactionRemover interface {
	RemoveUserReactions(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo        repository.UserRepository
	reactionRemover ReactionRemover
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, reactionRemover ReactionRemover) *Service {
	return &Service{
		userRepo:        userRepo,
		reactionRemover: reactionRemover,
	}
}

// List はユーザー一覧を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	if err := model.ValidateID(id); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: 他の投稿へのリアクション → user（+ CASCADE: posts）
// 注文とメディアはuser_idをNULLにして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. リアクションを削除
	if s.reactionRemover != nil {
		if err := s.reactionRemover.RemoveUserReactions(ctx, userID); err != nil {
			return fmt.Errorf("リアクションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（postsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
