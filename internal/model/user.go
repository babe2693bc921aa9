// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultUserRole はロール未指定で登録されたユーザーのロール。
const DefaultUserRole = "student"

// User はサービス利用ユーザーを表す。
// ClerkIDは外部IdPが発行する識別子で、本システムでは一意性以外の意味を持たない。
type User struct {
	ID        string
	ClerkID   string
	Name      string
	Email     string
	Role      string
	Points    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーの練習セッションを表す。
// 追記のみで、作成後に更新・削除されることはない。
type Session struct {
	ID              string
	UserID          string
	Points          float64
	MudrasAttempted int
	DurationSeconds int
	StartTime       time.Time
}
