package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge は書き込み中にサイズ上限を超えたことを表す。
var ErrTooLarge = errors.New("file exceeds size limit")

// Storage はメディアファイルの保存先のインターフェース。
type Storage interface {
	// Save はrをnameとして保存し、書き込んだバイト数を返す。
	// maxSizeを超えた場合は途中まで書いたファイルを削除してErrTooLargeを返す。
	Save(name string, r io.Reader, maxSize int64) (int64, error)
	// Remove は保存済みファイルを削除する。
	Remove(name string) error
}

// DiskStorage はローカルディレクトリにファイルを保存するStorage実装。
type DiskStorage struct {
	dir string
}

// NewDiskStorage はdirを作成してDiskStorageを返す。
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStorage{dir: dir}, nil
}

// Dir は保存先ディレクトリを返す。
func (s *DiskStorage) Dir() string {
	return s.dir
}

// Save はファイルを一時名で書き込み、完了後にリネームする。
func (s *DiskStorage) Save(name string, r io.Reader, maxSize int64) (int64, error) {
	path, err := s.path(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	// 上限+1バイトまで読んで超過を検出する
	n, err := io.Copy(tmp, io.LimitReader(r, maxSize+1))
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if n > maxSize {
		cleanup()
		return 0, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

// Remove は保存済みファイルを削除する。存在しない場合はエラーにしない。
func (s *DiskStorage) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *DiskStorage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

var _ Storage = (*DiskStorage)(nil)
