// Package model はドメインモデルを定義する。
package model

import "time"

// ChatFetchLimit はチャット取得時に返す最新メッセージの最大件数。
const ChatFetchLimit = 200

// Group は練習グループを表す。
// InviteCodeは全グループで一意。AdminClerkIDは作成時点で存在したユーザーを指す。
type Group struct {
	ID           string
	Name         string
	InviteCode   string
	AdminClerkID string
	Members      []Member
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMember は指定clerkIdがメンバー集合に含まれるかを返す。
func (g *Group) HasMember(clerkID string) bool {
	for _, m := range g.Members {
		if m.ClerkID == clerkID {
			return true
		}
	}
	return false
}

// Member はグループメンバーを表す。
// Name/Emailは参加時点のスナップショットで、以後のユーザー情報の変更には追随しない。
type Member struct {
	ClerkID  string
	Name     string
	Email    string
	JoinedAt time.Time
}

// ChatMessage はグループチャットのメッセージを表す。
// SenderNameは投稿時点のスナップショット。
type ChatMessage struct {
	ID            string
	GroupID       string
	SenderClerkID string
	SenderName    string
	Message       string
	CreatedAt     time.Time
}
