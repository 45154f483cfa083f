// Package security はアプリケーションのセキュリティ機能を提供する。
//
// PostSanitizer は投稿本文のHTMLを許可リストベースでサニタイズし、
// SSRFGuard はリモートメディア取り込み時の宛先URLを検証する。
package security

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿本文のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は投稿本文をサニタイズして安全なHTMLを返す。
	// プレーンテキストはエスケープのみ行われる。
	Sanitize(rawHTML string) string
}

// PostSanitizer はContentSanitizerServiceの実装。
// bluemonday.Policyはスレッドセーフなので1インスタンスを共有できる。
type PostSanitizer struct {
	policy *bluemonday.Policy
}

// NewPostSanitizer は投稿本文用のサニタイザーを生成する。
// mediaPrefix（例: "/uploads/"）で始まる相対パスはimgとvideoのsrcとして許可する。
//
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img, video
//   - script, iframe, style と全てのon*イベント属性は除去
//   - 絶対URLはhttpsのみ
//   - aタグには target="_blank" と rel="noopener noreferrer" を付与
func NewPostSanitizer(mediaPrefix string) *PostSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").Matching(mediaSrcPattern(mediaPrefix)).OnElements("img", "video")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("controls").OnElements("video")

	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})
	p.AllowRelativeURLs(mediaPrefix != "")

	return &PostSanitizer{policy: p}
}

// Sanitize は投稿本文をサニタイズする。前後の空白は除去する。
func (s *PostSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.policy.Sanitize(rawHTML))
}

// mediaSrcPattern はsrc属性に許可する値の正規表現を返す。
// 相対URLはmediaPrefix配下のパスのみ許可する。
func mediaSrcPattern(mediaPrefix string) *regexp.Regexp {
	if mediaPrefix == "" {
		return regexp.MustCompile(`^https://\S+$`)
	}
	return regexp.MustCompile(`^(https://\S+|` + regexp.QuoteMeta(mediaPrefix) + `[A-Za-z0-9._-]+)$`)
}

var _ ContentSanitizerService = (*PostSanitizer)(nil)
