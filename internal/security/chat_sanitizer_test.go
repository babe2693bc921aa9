package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestChatSanitizer_Sanitize はタグが除去されテキストが保持されることを検証する。
func TestChatSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewChatSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Practice at 6pm today",
			want:  "Practice at 6pm today",
		},
		{
			name:  "記号はエンティティ化されずに保持される",
			input: `Tom & Jerry's "Alarippu" 2 < 3`,
			want:  `Tom & Jerry's "Alarippu" 2 < 3`,
		},
		{
			name:  "scriptタグは中身ごと除去される",
			input: `hello<script>alert("x")</script>`,
			want:  "hello",
		},
		{
			name:  "装飾タグはテキストのみ残る",
			input: "<b>bold</b> and <a href=\"https://example.com\">link</a>",
			want:  "bold and link",
		},
		{
			name:  "イベント属性付きタグも除去される",
			input: `<img src=x onerror=alert(1)>pose`,
			want:  "pose",
		},
		{
			name:  "前後の空白を除去",
			input: "  namaste \n",
			want:  "namaste",
		},
		{
			name:  "タグのみの場合は空文字列",
			input: "<p></p>",
			want:  "",
		},
		{
			name:  "日本語",
			input: "<em>ムドラ</em>の練習",
			want:  "ムドラの練習",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestChatSanitizer_Truncate は最大文字数で切り詰められることを検証する。
func TestChatSanitizer_Truncate(t *testing.T) {
	sanitizer := NewChatSanitizer()

	input := strings.Repeat("ம", MaxChatMessageLength+10)
	got := sanitizer.Sanitize(input)

	if n := utf8.RuneCountInString(got); n != MaxChatMessageLength {
		t.Errorf("rune count = %d, want %d", n, MaxChatMessageLength)
	}
	if !utf8.ValidString(got) {
		t.Error("切り詰め後の文字列が不正なUTF-8です")
	}
}

// TestChatSanitizer_Idempotent は同一入力に同一出力を返すことを検証する。
func TestChatSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewChatSanitizer()
	input := "<i>Tatta</i> adavu"

	first := sanitizer.Sanitize(input)
	if second := sanitizer.Sanitize(first); second != first {
		t.Errorf("second pass = %q, want %q", second, first)
	}
}
