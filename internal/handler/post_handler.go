package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context) ([]postResponse, error)
	Get(ctx context.Context, id string) (*postResponse, error)
	Create(ctx context.Context, authorID, content string) (*postResponse, error)
	Update(ctx context.Context, userID, id, content string) (*postResponse, error)
	Delete(ctx context.Context, userID, id string) error
	// React はリアクションをトグルする。未知の種別は投稿を読み込まずに拒否する。
	React(ctx context.Context, userID, id, kind string) (*reactionResponse, error)
	// FeedXML は最新投稿のRSS 2.0を返す。
	FeedXML(ctx context.Context) ([]byte, error)
}

// PostHandler は投稿のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

type postContentRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Type string `json:"type"`
}

// authorResponse は投稿に埋め込む投稿者プロフィール。
type authorResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// postResponse は投稿のAPIレスポンス。投稿者が退会済みの場合authorはnull。
type postResponse struct {
	ID            string          `json:"id"`
	Content       string          `json:"content"`
	AuthorID      string          `json:"authorId"`
	Author        *authorResponse `json:"author"`
	Likes         []string        `json:"likes"`
	Dislikes      []string        `json:"dislikes"`
	LikesCount    int             `json:"likesCount"`
	DislikesCount int             `json:"dislikesCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type postMutationResponse struct {
	Message string        `json:"message"`
	Post    *postResponse `json:"post"`
}

// reactionResponse はリアクションのトグル結果。
// outcomeは added / removed / switched のいずれか。
type reactionResponse struct {
	Outcome string        `json:"outcome"`
	Post    *postResponse `json:"post"`
}

// List は投稿一覧を新しい順に返す。
// GET /posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Get は投稿を返す。
// GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create は投稿を作成する。
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req postContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.Create(r.Context(), userID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, postMutationResponse{
		Message: "post created successfully",
		Post:    post,
	})
}

// Update は投稿本文を更新する。投稿者以外は403。
// PUT /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req postContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, postMutationResponse{
		Message: "post updated successfully",
		Post:    post,
	})
}

// Delete は投稿を削除する。投稿者以外は403。
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "post deleted successfully"})
}

// React はlike/dislikeをトグルする。
// POST /posts/{id}/reactions
func (h *PostHandler) React(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req reactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.React(r.Context(), userID, chi.URLParam(r, "id"), req.Type)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Feed は最新投稿のRSSを返す。
// GET /posts/feed.xml
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.FeedXML(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
