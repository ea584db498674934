// Package events はアカウント操作のイベント記録を提供します。
//
// 登録・ログイン・ログアウトなどのイベントを発行し、ユーザーごとの
// アクティビティ（前回ログイン日時など）に集約します。
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type はイベントの種別を表します。
type Type string

const (
	TypeRegistered  Type = "user.registered"
	TypeLoggedIn    Type = "user.logged_in"
	TypeLoginFailed Type = "user.login_failed"
	TypeLoggedOut   Type = "user.logged_out"
)

// Event はアカウント操作イベントです。
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New は現在時刻でイベントを作成します。
func New(t Type, username string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Username:   username,
		OccurredAt: time.Now().UTC(),
	}
}

// Activity はユーザーごとのアクティビティ集計です。
type Activity struct {
	Username        string    `json:"username"`
	RegisteredAt    time.Time `json:"registeredAt"`
	LastLoginAt     time.Time `json:"lastLoginAt"`
	PreviousLoginAt time.Time `json:"previousLoginAt"`
	LastLogoutAt    time.Time `json:"lastLogoutAt"`
	LastFailedAt    time.Time `json:"lastFailedAt"`
	FailedLogins    int       `json:"failedLogins"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Apply はイベントをアクティビティに反映します。
// 処理済みより古いイベントは時刻フィールドを巻き戻しません。
func (a *Activity) Apply(ev Event) {
	if a.Username == "" {
		a.Username = ev.Username
	}
	at := ev.OccurredAt

	switch ev.Type {
	case TypeRegistered:
		a.RegisteredAt = at
	case TypeLoggedIn:
		if at.After(a.LastLoginAt) {
			a.PreviousLoginAt = a.LastLoginAt
			a.LastLoginAt = at
		}
		a.FailedLogins = 0
	case TypeLoginFailed:
		a.FailedLogins++
		if at.After(a.LastFailedAt) {
			a.LastFailedAt = at
		}
	case TypeLoggedOut:
		if at.After(a.LastLogoutAt) {
			a.LastLogoutAt = at
		}
	}

	if at.After(a.UpdatedAt) {
		a.UpdatedAt = at
	}
}
