package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/postpay/internal/model"
)

func TestPostHandler_List_ReturnsPosts(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context) ([]postResponse, error) {
			return []postResponse{
				{ID: "p2", Content: "newer", Likes: []string{"u1"}, Dislikes: []string{}, LikesCount: 1},
				{ID: "p1", Content: "older", Likes: []string{}, Dislikes: []string{}},
			}, nil
		},
	}
	h := NewPostHandler(svc)

	w := httptest.NewRecorder()
	h.List(w, withUserID(httptest.NewRequest(http.MethodGet, "/posts", nil), "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp []postResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "p2" || resp[0].LikesCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPostHandler_Get_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid id", model.NewInvalidIDError("zzz"), http.StatusBadRequest, model.ErrCodeInvalidID},
		{"not found", model.NewPostNotFoundError("x"), http.StatusNotFound, model.ErrCodePostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				getFn: func(ctx context.Context, id string) (*postResponse, error) {
					return nil, tt.err
				},
			}
			h := NewPostHandler(svc)

			req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/posts/zzz", nil), "id", "zzz")
			w := httptest.NewRecorder()
			h.Get(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

func TestPostHandler_Create_Success(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, authorID, content string) (*postResponse, error) {
			if authorID != "author-1" {
				t.Errorf("authorID = %q, want %q", authorID, "author-1")
			}
			if content != "hello" {
				t.Errorf("content = %q, want %q", content, "hello")
			}
			return &postResponse{ID: "p1", Content: content, AuthorID: authorID}, nil
		},
	}
	h := NewPostHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"content":"hello"}`)), "author-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp postMutationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Message != "post created successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Post == nil || resp.Post.ID != "p1" {
		t.Errorf("post = %+v", resp.Post)
	}
}

func TestPostHandler_Create_EmptyContent_Returns400(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, authorID, content string) (*postResponse, error) {
			return nil, model.NewContentRequiredError()
		},
	}
	h := NewPostHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"content":"   "}`)), "author-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeContentRequired {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeContentRequired)
	}
}

func TestPostHandler_Update_Forbidden_Returns403(t *testing.T) {
	svc := &mockPostService{
		updateFn: func(ctx context.Context, userID, id, content string) (*postResponse, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/posts/p1", strings.NewReader(`{"content":"edit"}`))
	req = withChiURLParam(req, "id", "p1")
	req = withUserID(req, "intruder")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestPostHandler_Delete_ReturnsMessage(t *testing.T) {
	var gotUser, gotID string
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, userID, id string) error {
			gotUser, gotID = userID, id
			return nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/posts/p1", nil)
	req = withChiURLParam(req, "id", "p1")
	req = withUserID(req, "author-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUser != "author-1" || gotID != "p1" {
		t.Errorf("Delete called with (%q, %q)", gotUser, gotID)
	}
	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Message != "post deleted successfully" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestPostHandler_React_PassesType(t *testing.T) {
	var gotKind string
	svc := &mockPostService{
		reactFn: func(ctx context.Context, userID, id, kind string) (*reactionResponse, error) {
			gotKind = kind
			return &reactionResponse{Outcome: "switched", Post: &postResponse{ID: id, Dislikes: []string{userID}, DislikesCount: 1}}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/reactions", strings.NewReader(`{"type":"dislike"}`))
	req = withChiURLParam(req, "id", "p1")
	req = withUserID(req, "u1")
	w := httptest.NewRecorder()

	h.React(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotKind != "dislike" {
		t.Errorf("kind = %q, want dislike", gotKind)
	}
	var resp reactionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Outcome != "switched" || resp.Post.DislikesCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPostHandler_React_InvalidType_Returns400(t *testing.T) {
	svc := &mockPostService{
		reactFn: func(ctx context.Context, userID, id, kind string) (*reactionResponse, error) {
			return nil, model.NewInvalidReactionError(kind)
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/reactions", strings.NewReader(`{"type":"neutral"}`))
	req = withChiURLParam(req, "id", "p1")
	req = withUserID(req, "u1")
	w := httptest.NewRecorder()

	h.React(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeInvalidReaction {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidReaction)
	}
}

func TestPostHandler_Feed_SetsContentType(t *testing.T) {
	h := NewPostHandler(&mockPostService{})

	w := httptest.NewRecorder()
	h.Feed(w, httptest.NewRequest(http.MethodGet, "/posts/feed.xml", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<rss") {
		t.Errorf("body = %q", w.Body.String())
	}
}
