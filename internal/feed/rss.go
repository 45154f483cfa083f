// Package feed は投稿一覧のRSS 2.0配信を提供する。
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/hitoshi/postpay/internal/model"
)

// ExcerptLength はRSSアイテムのdescriptionに含める最大文字数（rune数）。
const ExcerptLength = 200

// Channel はRSSチャンネルのメタデータ。
type Channel struct {
	Title       string
	Link        string // フロントエンドのベースURL
	Description string
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Author      string  `xml:"author,omitempty"`
	PubDate     string  `xml:"pubDate"`
	Description string  `xml:"description"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RenderRSS は投稿一覧をRSS 2.0のXMLに変換する。postsは新しい順であること。
func RenderRSS(ch Channel, posts []model.PostWithAuthor) ([]byte, error) {
	link := strings.TrimRight(ch.Link, "/")

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        link + "/",
			Description: ch.Description,
			Items:       make([]rssItem, 0, len(posts)),
		},
	}
	if len(posts) > 0 {
		doc.Channel.LastBuildDate = posts[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}

	for _, p := range posts {
		excerpt := Excerpt(p.Content, ExcerptLength)
		item := rssItem{
			Title:       Excerpt(p.Content, 60),
			Link:        fmt.Sprintf("%s/posts/%s", link, p.ID),
			GUID:        rssGUID{Value: p.ID},
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			Description: excerpt,
		}
		if p.Author != nil {
			item.Author = p.Author.FullName
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode rss: %w", err)
	}
	return buf.Bytes(), nil
}

// Excerpt はHTMLからテキストだけを取り出し、連続する空白を1つにまとめ、
// 最大maxRunes文字に切り詰める。切り詰めた場合は末尾に「…」を付ける。
func Excerpt(content string, maxRunes int) string {
	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	skip := 0

loop:
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			break loop
		case html.StartTagToken:
			if isRawTextTag(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(tokenizer) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}

	text := strings.Join(strings.FieldsFunc(sb.String(), unicode.IsSpace), " ")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
