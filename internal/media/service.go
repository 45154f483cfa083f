// Package media は画像・動画ファイルのアップロードとリモートURLからの取り込みを提供する。
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/postpay/internal/metrics"
	"github.com/hitoshi/postpay/internal/model"
	"github.com/hitoshi/postpay/internal/repository"
	"github.com/hitoshi/postpay/internal/security"
)

// sniffLen はhttp.DetectContentTypeが参照する先頭バイト数。
const sniffLen = 512

// URLValidator はリモートURLの静的検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// ServiceConfig はメディアサービスの設定。
type ServiceConfig struct {
	MaxSize   int64
	URLPrefix string // 公開URLのパス接頭辞（例: "/uploads/"）
}

// Service はメディア保存のビジネスロジックを提供する。
type Service struct {
	repo      repository.MediaRepository
	storage   Storage
	validator URLValidator
	client    *http.Client
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time
	backoff   func(attempt int) time.Duration
}

// NewService はServiceを生成する。clientはリモート取り込みに使うHTTPクライアント。
func NewService(
	repo repository.MediaRepository,
	storage Storage,
	validator URLValidator,
	client *http.Client,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.URLPrefix == "" {
		config.URLPrefix = "/uploads/"
	}
	return &Service{
		repo:      repo,
		storage:   storage,
		validator: validator,
		client:    client,
		metrics:   collector,
		config:    config,
		now:       time.Now,
		backoff:   retryDelay,
	}
}

// URLFor は保存ファイル名に対応する公開URLを返す。
func (s *Service) URLFor(m *model.Media) string {
	return s.config.URLPrefix + m.Filename
}

// Upload はアップロードされたファイルを検証して保存する。
// 画像・動画以外はUNSUPPORTED_MEDIA、サイズ超過はFILE_TOO_LARGEを返す。
func (s *Service) Upload(ctx context.Context, ownerID, originalName string, r io.Reader) (*model.Media, error) {
	return s.store(ctx, ownerID, originalName, r, model.MediaSourceUpload)
}

// ImportRemote はURLからメディアを取得して保存する。
// 取得はSSRF防止済みクライアントで行い、上限サイズを超える応答は途中で打ち切る。
func (s *Service) ImportRemote(ctx context.Context, ownerID, rawURL string) (*model.Media, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := s.validator.ValidateURL(rawURL); err != nil {
		slog.Warn("remote media url rejected",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, security.ErrBlockedURL) {
			return nil, model.NewSSRFBlockedError()
		}
		return nil, model.NewInvalidURLError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Postpay/1.0 media importer")
	req.Header.Set("Accept", "image/*, video/*")

	resp, err := s.fetchRemote(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > s.config.MaxSize {
		return nil, model.NewFileTooLargeError(s.config.MaxSize)
	}

	return s.store(ctx, ownerID, remoteName(req.URL), resp.Body, model.MediaSourceRemote)
}

// fetchRemote はリモートURLを取得する。429/5xxの場合のみ指数バックオフで再試行する。
// 成功時は呼び出し側でBodyを閉じる。
func (s *Service) fetchRemote(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := s.client.Do(req.Clone(ctx))
		if err != nil {
			slog.Warn("remote media fetch failed",
				slog.String("url", req.URL.String()),
				slog.String("error", err.Error()),
			)
			return nil, model.NewFetchFailedError("request failed")
		}

		result := classifyStatus(resp.StatusCode)
		if result == fetchOK {
			return resp, nil
		}
		resp.Body.Close()

		if result == fetchStop || attempt+1 >= maxFetchAttempts {
			return nil, model.NewFetchFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
		}

		delay := s.backoff(attempt)
		slog.Info("retrying remote media fetch",
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return nil, model.NewFetchFailedError(ctx.Err().Error())
		case <-time.After(delay):
		}
	}
}

func (s *Service) store(ctx context.Context, ownerID, originalName string, r io.Reader, source model.MediaSource) (*model.Media, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, model.NewFileRequiredError()
	}

	contentType := http.DetectContentType(head)
	if !isAllowedMediaType(contentType) {
		return nil, model.NewUnsupportedMediaError(contentType)
	}

	id := uuid.New().String()
	filename := id + extensionFor(contentType, originalName)

	size, err := s.storage.Save(filename, io.MultiReader(bytes.NewReader(head), r), s.config.MaxSize)
	if errors.Is(err, ErrTooLarge) {
		return nil, model.NewFileTooLargeError(s.config.MaxSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save media: %w", err)
	}

	m := &model.Media{
		ID:           id,
		OwnerID:      ownerID,
		Filename:     filename,
		OriginalName: truncate(path.Base(originalName), 255),
		ContentType:  contentType,
		Size:         size,
		Source:       source,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if rmErr := s.storage.Remove(filename); rmErr != nil {
			slog.Error("failed to remove orphaned media file",
				slog.String("filename", filename),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to record media: %w", err)
	}

	s.metrics.RecordUpload(string(source))
	slog.Info("media stored",
		slog.String("media_id", m.ID),
		slog.String("content_type", contentType),
		slog.Int64("size", size),
		slog.String("source", string(source)),
	)
	return m, nil
}

// Get は指定IDのメディアを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Media, error) {
	if err := model.ValidateID(id); err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	if m == nil {
		return nil, model.NewMediaNotFoundError(id)
	}
	return m, nil
}

func isAllowedMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// knownExtensions はスニッフィング結果に対応する拡張子。
var knownExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"image/x-icon":    ".ico",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/avi":       ".avi",
	"video/ogg":       ".ogv",
	"video/quicktime": ".mov",
}

// extensionFor は保存ファイルの拡張子を決める。
// 既知の型はその拡張子、それ以外は元ファイル名の拡張子を使う。
func extensionFor(contentType, originalName string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	if ext, ok := knownExtensions[strings.TrimSpace(mediaType)]; ok {
		return ext
	}
	ext := strings.ToLower(path.Ext(originalName))
	if len(ext) > 1 && len(ext) <= 8 && isAlnum(ext[1:]) {
		return ext
	}
	return ""
}

func isAlnum(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func remoteName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return u.Hostname()
	}
	return name
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
