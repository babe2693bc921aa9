// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ChatSanitizer はグループチャットの投稿本文からHTMLを除去し、
// 保存するテキストをプレーンテキストに正規化する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxChatMessageLength はチャットメッセージの最大文字数（rune数）。
const MaxChatMessageLength = 2000

// ChatSanitizer はチャット本文のサニタイズ機能のインターフェース。
type ChatSanitizer interface {
	// Sanitize はタグを全て除去し、前後の空白を取り除いたプレーンテキストを返す。
	// MaxChatMessageLengthを超える部分は切り捨てる。
	Sanitize(message string) string
}

// chatSanitizer はbluemondayのStrictPolicyを用いたChatSanitizerの実装。
// Policyはスレッドセーフなので単一インスタンスを共有する。
type chatSanitizer struct {
	policy *bluemonday.Policy
}

// NewChatSanitizer はChatSanitizerを生成する。
func NewChatSanitizer() *chatSanitizer {
	return &chatSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyはテキスト中の記号をエンティティに変換するため、保存前に元の文字へ戻す。
// 表示時のエスケープはクライアントの責務とする。
func (s *chatSanitizer) Sanitize(message string) string {
	text := html.UnescapeString(s.policy.Sanitize(message))
	text = strings.TrimSpace(text)
	return truncateRunes(text, MaxChatMessageLength)
}

// truncateRunes はUTF-8文字列をmax文字で切り詰める。
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
