// Package model はドメインモデルを定義する。
package model

import "time"

// 対応しているIdPプロバイダー名
const (
	ProviderFirebase = "firebase"
	ProviderGoogle   = "google"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity は外部IdPとの紐付け情報を表す。
// ProviderUserIDはIdPが発行したsubject（Firebase UID等）。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	Email          string
	CreatedAt      time.Time
}
