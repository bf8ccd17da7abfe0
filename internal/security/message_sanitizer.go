// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizer はチャットボットが生成した会話メッセージを
// ブラウザへ返す前に無害化する。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizer は会話メッセージのサニタイズ機能のインターフェース。
type MessageSanitizer interface {
	// Sanitize はメッセージ本文を安全なHTML断片に変換する。
	// 書式タグ（p, br, strong, em, code, pre, ul, ol, li, blockquote）とhttpsリンクのみを残し、
	// それ以外のタグ・属性・スクリプトは除去する。空文字列には空文字列を返す。
	Sanitize(content string) string
}

type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerを生成する。
// bluemondayのポリシーは生成後に変更しないため、複数goroutineから安全に利用できる。
func NewMessageSanitizer() MessageSanitizer {
	return &messageSanitizer{policy: newMessagePolicy()}
}

func newMessagePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "strong", "em", "code", "pre",
		"ul", "ol", "li", "blockquote",
	)

	// 参考リンクはhttpsの絶対URLのみ
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return p
}

// Sanitize はメッセージ本文をサニタイズする。
func (s *messageSanitizer) Sanitize(content string) string {
	if content == "" {
		return ""
	}
	return s.policy.Sanitize(content)
}
