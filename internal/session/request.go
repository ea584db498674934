package session

import (
	"github.com/gin-contrib/sessions"
)

// SetAuthenticated はリクエストのセッションを認証済みにします。保存は呼び出し側で行います。
func SetAuthenticated(s sessions.Session, username string) {
	s.Set(valueLoggedIn, username != "")
	if username == "" {
		s.Delete(valueUsername)
		return
	}
	s.Set(valueUsername, username)
}

// IsAuthenticated はリクエストのセッションが認証済みかどうかを返します。
func IsAuthenticated(s sessions.Session) bool {
	return Username(s) != ""
}

// Username は認証済みセッションのユーザー名を返します。未認証なら空文字です。
func Username(s sessions.Session) string {
	loggedIn, _ := s.Get(valueLoggedIn).(bool)
	username, _ := s.Get(valueUsername).(string)
	if !loggedIn {
		return ""
	}
	return username
}

// IsNew はセッションがまだ保存されていないかどうかを返します。
func IsNew(s sessions.Session) bool {
	return s.ID() == ""
}

// Touch は匿名セッションを保存対象としてマークします。
func Touch(s sessions.Session) {
	s.Set(valueLoggedIn, IsAuthenticated(s))
}

// Destroy はサーバー側のセッションを削除し、クライアントのクッキーを失効させます。
// 削除に失敗した場合は ErrDestroy をラップしたエラーを返します。
func Destroy(s sessions.Session) error {
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.Save()
}
