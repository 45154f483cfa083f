// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーの投稿を表す。
// Likes と Dislikes はリアクションしたユーザーIDの挿入順の列で、
// 同じユーザーIDは両方に同時に含まれない。
type Post struct {
	ID        string
	Content   string
	AuthorID  string
	Likes     []string
	Dislikes  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithAuthor は投稿と投稿者プロフィールを結合したモデル。
// 投稿者が退会済みの場合 Author は nil。
type PostWithAuthor struct {
	Post
	Author *Author
}

// ReactionType はリアクション種別を表す。
type ReactionType string

const (
	// ReactionLike は高評価。
	ReactionLike ReactionType = "like"
	// ReactionDislike は低評価。
	ReactionDislike ReactionType = "dislike"
)

// Valid はリアクション種別が like/dislike のいずれかかを返す。
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Opposite は反対のリアクション種別を返す。
func (t ReactionType) Opposite() ReactionType {
	if t == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}
