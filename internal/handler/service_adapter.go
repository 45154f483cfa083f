package handler

import (
	"context"
	"io"

	"github.com/hitoshi/postpay/internal/auth"
	"github.com/hitoshi/postpay/internal/feed"
	"github.com/hitoshi/postpay/internal/media"
	"github.com/hitoshi/postpay/internal/middleware"
	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/payment"
	"github.com/hitoshi/postpay/internal/post"
	"github.com/hitoshi/postpay/internal/user"
)

// FeedSize はRSSに含める最新投稿の件数。
const FeedSize = 50

// PostServiceAdapter は post.Service を PostServiceInterface に適合させるアダプタ。
type PostServiceAdapter struct {
	svc     *post.Service
	channel feed.Channel
}

// NewPostServiceAdapter はPostServiceAdapterを生成する。channelはRSSのチャンネル情報。
func NewPostServiceAdapter(svc *post.Service, channel feed.Channel) *PostServiceAdapter {
	return &PostServiceAdapter{svc: svc, channel: channel}
}

// List は全投稿をhandlerレスポンス型で返す。
func (a *PostServiceAdapter) List(ctx context.Context) ([]postResponse, error) {
	posts, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]postResponse, len(posts))
	for i, p := range posts {
		results[i] = toPostResponse(&p.Post, p.Author)
	}
	return results, nil
}

// Get は投稿を投稿者プロフィール付きで返す。
func (a *PostServiceAdapter) Get(ctx context.Context, id string) (*postResponse, error) {
	p, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toPostResponse(&p.Post, p.Author)
	return &resp, nil
}

// Create は投稿を作成する。
func (a *PostServiceAdapter) Create(ctx context.Context, authorID, content string) (*postResponse, error) {
	p, err := a.svc.Create(ctx, authorID, content)
	if err != nil {
		return nil, err
	}
	resp := toPostResponse(p, nil)
	return &resp, nil
}

// Update は投稿本文を更新する。
func (a *PostServiceAdapter) Update(ctx context.Context, userID, id, content string) (*postResponse, error) {
	p, err := a.svc.Update(ctx, userID, id, content)
	if err != nil {
		return nil, err
	}
	resp := toPostResponse(p, nil)
	return &resp, nil
}

// Delete は投稿を削除する。
func (a *PostServiceAdapter) Delete(ctx context.Context, userID, id string) error {
	return a.svc.Delete(ctx, userID, id)
}

// React はリアクションをトグルし、結果をhandlerレスポンス型で返す。
func (a *PostServiceAdapter) React(ctx context.Context, userID, id, kind string) (*reactionResponse, error) {
	p, outcome, err := a.svc.React(ctx, userID, id, kind)
	if err != nil {
		return nil, err
	}
	resp := toPostResponse(p, nil)
	return &reactionResponse{Outcome: string(outcome), Post: &resp}, nil
}

// FeedXML は最新FeedSize件の投稿をRSSに変換する。
func (a *PostServiceAdapter) FeedXML(ctx context.Context) ([]byte, error) {
	posts, err := a.svc.Recent(ctx, FeedSize)
	if err != nil {
		return nil, err
	}
	return feed.RenderRSS(a.channel, posts)
}

// toPostResponse はドメインの投稿をhandlerのレスポンス型に変換する。
func toPostResponse(p *model.Post, author *model.Author) postResponse {
	resp := postResponse{
		ID:            p.ID,
		Content:       p.Content,
		AuthorID:      p.AuthorID,
		Likes:         nonNil(p.Likes),
		Dislikes:      nonNil(p.Dislikes),
		LikesCount:    len(p.Likes),
		DislikesCount: len(p.Dislikes),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if author != nil {
		resp.Author = &authorResponse{
			ID:       author.ID,
			FullName: author.FullName,
			Email:    author.Email,
		}
	}
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// MediaServiceAdapter は media.Service を MediaServiceInterface に適合させるアダプタ。
type MediaServiceAdapter struct {
	svc *media.Service
}

// NewMediaServiceAdapter はMediaServiceAdapterを生成する。
func NewMediaServiceAdapter(svc *media.Service) *MediaServiceAdapter {
	return &MediaServiceAdapter{svc: svc}
}

// Upload はファイルを保存し、公開URL付きで返す。
func (a *MediaServiceAdapter) Upload(ctx context.Context, ownerID, originalName string, r io.Reader) (*mediaResponse, error) {
	m, err := a.svc.Upload(ctx, ownerID, originalName, r)
	if err != nil {
		return nil, err
	}
	return a.toResponse(m), nil
}

// ImportRemote はリモートURLのメディアを保存し、公開URL付きで返す。
func (a *MediaServiceAdapter) ImportRemote(ctx context.Context, ownerID, rawURL string) (*mediaResponse, error) {
	m, err := a.svc.ImportRemote(ctx, ownerID, rawURL)
	if err != nil {
		return nil, err
	}
	return a.toResponse(m), nil
}

// Get はメディアのメタデータを返す。
func (a *MediaServiceAdapter) Get(ctx context.Context, id string) (*mediaResponse, error) {
	m, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.toResponse(m), nil
}

func (a *MediaServiceAdapter) toResponse(m *model.Media) *mediaResponse {
	return &mediaResponse{
		ID:           m.ID,
		URL:          a.svc.URLFor(m),
		OriginalName: m.OriginalName,
		ContentType:  m.ContentType,
		Size:         m.Size,
		Source:       string(m.Source),
		CreatedAt:    m.CreatedAt,
	}
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ middleware.TokenVerifier = (*auth.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
var _ PaymentServiceInterface = (*payment.Service)(nil)
var _ PostServiceInterface = (*PostServiceAdapter)(nil)
var _ MediaServiceInterface = (*MediaServiceAdapter)(nil)
