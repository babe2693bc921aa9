package group

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// inviteCodeBytes は招待コードの元になる乱数のバイト数。hex表記で8文字になる。
const inviteCodeBytes = 4

// maxInviteCodeAttempts は招待コード衝突時に再生成する最大回数。
const maxInviteCodeAttempts = 5

// InviteCodeLength は招待コードの文字数。
const InviteCodeLength = inviteCodeBytes * 2

// newInviteCode はrから読み出した乱数をhexエンコードした招待コードを返す。
func newInviteCode(r io.Reader) (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeInviteCode は入力された招待コードを照合用の形式に揃える。
func NormalizeInviteCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// InviteLink はフロントエンドの参加ページへのリンクを組み立てる。
func InviteLink(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/join/" + code
}

var defaultRandReader io.Reader = rand.Reader
