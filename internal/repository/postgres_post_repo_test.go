package repository

import (
	"errors"
	"testing"

	"github.com/hitoshi/postpay/internal/model"
)

// TestPostgresPostRepo_ImplementsInterface はPostgresPostRepoがPostRepositoryを実装することを検証する。
func TestPostgresPostRepo_ImplementsInterface(t *testing.T) {
	var _ PostRepository = (*PostgresPostRepo)(nil)
}

type fakeRow struct {
	values []any
	err    error
}

func (f *fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		if i >= len(f.values) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = f.values[i].(string)
		default:
			// pq.Array / NullString / time は Scanner 経由で値を受け取る
			if s, ok := d.(interface{ Scan(any) error }); ok {
				if err := s.Scan(f.values[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func TestScanPostWithAuthor_WithAuthor(t *testing.T) {
	row := &fakeRow{values: []any{
		"post-1", "hello", "user-1",
		[]byte(`{user-2,user-3}`), []byte(`{}`),
		nil, nil,
		"user-1", "Alice", "alice@example.com",
	}}

	pwa, err := scanPostWithAuthor(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pwa.ID != "post-1" || pwa.Content != "hello" {
		t.Errorf("unexpected post: %+v", pwa.Post)
	}
	if len(pwa.Likes) != 2 || pwa.Likes[0] != "user-2" || pwa.Likes[1] != "user-3" {
		t.Errorf("Likes = %v, want [user-2 user-3]", pwa.Likes)
	}
	if pwa.Dislikes == nil || len(pwa.Dislikes) != 0 {
		t.Errorf("Dislikes = %v, want empty non-nil slice", pwa.Dislikes)
	}
	if pwa.Author == nil || pwa.Author.FullName != "Alice" {
		t.Errorf("Author = %+v, want Alice", pwa.Author)
	}
}

func TestScanPostWithAuthor_WithoutAuthor(t *testing.T) {
	row := &fakeRow{values: []any{
		"post-1", "hello", "user-1",
		nil, nil,
		nil, nil,
		nil, nil, nil,
	}}

	pwa, err := scanPostWithAuthor(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pwa.Author != nil {
		t.Errorf("Author = %+v, want nil", pwa.Author)
	}
	if pwa.Likes == nil || pwa.Dislikes == nil {
		t.Error("expected reactions to be normalized to empty slices")
	}
}

func TestScanPostWithAuthor_PropagatesError(t *testing.T) {
	want := errors.New("scan failed")
	_, err := scanPostWithAuthor(&fakeRow{err: want})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestNormalizeReactions(t *testing.T) {
	p := &model.Post{}
	normalizeReactions(p)
	if p.Likes == nil || p.Dislikes == nil {
		t.Fatal("expected non-nil slices")
	}

	p = &model.Post{Likes: []string{"a"}}
	normalizeReactions(p)
	if len(p.Likes) != 1 || p.Likes[0] != "a" {
		t.Errorf("Likes = %v, want [a]", p.Likes)
	}
}
