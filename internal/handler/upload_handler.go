package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/postpay/internal/model"
)

// multipartOverhead はmultipartの境界やヘッダー分としてファイル上限に上乗せするバイト数。
const multipartOverhead = 1 << 20

// MediaServiceInterface はアップロードハンドラーが必要とするサービスインターフェース。
type MediaServiceInterface interface {
	Upload(ctx context.Context, ownerID, originalName string, r io.Reader) (*mediaResponse, error)
	ImportRemote(ctx context.Context, ownerID, rawURL string) (*mediaResponse, error)
	Get(ctx context.Context, id string) (*mediaResponse, error)
}

// UploadHandler はメディアアップロードのHTTPハンドラー。
type UploadHandler struct {
	service MediaServiceInterface
	maxSize int64
}

// NewUploadHandler はUploadHandlerを生成する。maxSizeは1ファイルの上限バイト数。
func NewUploadHandler(service MediaServiceInterface, maxSize int64) *UploadHandler {
	return &UploadHandler{service: service, maxSize: maxSize}
}

type remoteUploadRequest struct {
	URL string `json:"url"`
}

// mediaResponse は保存済みメディアのAPIレスポンス。
type mediaResponse struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Upload はmultipartのfileフィールドで受け取った1ファイルを保存する。
// ボディはストリームで処理し、メモリや一時ファイルに全体を展開しない。
// POST /upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("multipart/form-data is required"))
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		if !h.writeTooLarge(w, err) {
			slog.Warn("malformed multipart body", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed multipart body"))
		}
		return
	}
	if part == nil {
		handleServiceError(w, model.NewFileRequiredError())
		return
	}
	defer part.Close()

	media, err := h.service.Upload(r.Context(), userID, part.FileName(), part)
	if err != nil {
		if !h.writeTooLarge(w, err) {
			handleServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, media)
}

// nextFilePart はfileフィールドのファイルパートを返す。見つからなければnil。
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// writeTooLarge はボディ上限超過のエラーなら413を書き込んでtrueを返す。
func (h *UploadHandler) writeTooLarge(w http.ResponseWriter, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}
	handleServiceError(w, model.NewFileTooLargeError(h.maxSize))
	return true
}

// ImportRemote はURLを指定してメディアを取り込む。
// POST /upload/remote
func (h *UploadHandler) ImportRemote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req remoteUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		handleServiceError(w, model.NewInvalidURLError("URLが空です"))
		return
	}

	media, err := h.service.ImportRemote(r.Context(), userID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, media)
}

// Get はメディアのメタデータを返す。
// GET /upload/{id}
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	media, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}
