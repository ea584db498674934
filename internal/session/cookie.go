package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
)

// gin-contrib/sessions の Values に格納するキー
const (
	valueLoggedIn  = "isLoggedIn"
	valueUsername  = "username"
	valueCreatedAt = "createdAt"
)

// CookieStore は Store を gin-contrib/sessions のストアとして使うためのアダプターです。
// クッキーには securecookie で署名したトークンだけを載せ、状態は backend に保存します。
type CookieStore struct {
	backend Store
	codecs  []securecookie.Codec
	options *gsessions.Options
}

var _ sessions.Store = (*CookieStore)(nil)

// NewCookieStore は CookieStore を作成します。
// keyPairs は securecookie.CodecsFromPairs と同じ形式（署名鍵, 暗号化鍵, ...）です。
func NewCookieStore(backend Store, keyPairs ...[]byte) *CookieStore {
	cs := &CookieStore{
		backend: backend,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		options: &gsessions.Options{
			Path:     "/",
			MaxAge:   86400,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	cs.syncCodecMaxAge()
	return cs
}

// Options はクッキー属性を設定します。
func (cs *CookieStore) Options(options sessions.Options) {
	cs.options = options.ToGorillaOptions()
	cs.syncCodecMaxAge()
}

// Get はリクエスト単位でキャッシュされたセッションを返します。
func (cs *CookieStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(cs, name)
}

// New はクッキーのトークンから backend のセッションを読み込みます。
// クッキーが無い・改ざんされている・backend に存在しない場合は匿名セッションを返します。
func (cs *CookieStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	sess := gsessions.NewSession(cs, name)
	opts := *cs.options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}

	var token string
	if err := securecookie.DecodeMulti(name, c.Value, &token, cs.codecs...); err != nil {
		return sess, nil
	}

	record, err := cs.backend.Load(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return sess, nil
		}
		// 一時的な障害でクッキーを上書きしないよう、トークンは保持したまま未認証として扱います。
		sess.ID = token
		sess.IsNew = false
		return sess, fmt.Errorf("failed to load session: %w", err)
	}

	sess.ID = record.Token
	sess.IsNew = false
	sess.Values[valueLoggedIn] = record.IsLoggedIn
	sess.Values[valueCreatedAt] = record.CreatedAt.Unix()
	if record.IsLoggedIn {
		sess.Values[valueUsername] = record.Username
	}
	return sess, nil
}

// Save はセッションを backend に保存し、トークンをクッキーに書き込みます。
// MaxAge が負の場合はセッションを破棄してクッキーを失効させます。
func (cs *CookieStore) Save(r *http.Request, w http.ResponseWriter, sess *gsessions.Session) error {
	if sess.Options != nil && sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := cs.backend.Destroy(r.Context(), sess.ID); err != nil {
				return fmt.Errorf("%w: %w", ErrDestroy, err)
			}
		}
		http.SetCookie(w, gsessions.NewCookie(sess.Name(), "", sess.Options))
		sess.ID = ""
		return nil
	}

	record := recordFromValues(sess.ID, sess.Values)
	token, err := cs.backend.Save(r.Context(), record)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	sess.ID = token

	encoded, err := securecookie.EncodeMulti(sess.Name(), token, cs.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

func (cs *CookieStore) syncCodecMaxAge() {
	if cs.options == nil || cs.options.MaxAge <= 0 {
		return
	}
	for _, codec := range cs.codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(cs.options.MaxAge)
		}
	}
}

func recordFromValues(token string, values map[interface{}]interface{}) *Session {
	loggedIn, _ := values[valueLoggedIn].(bool)
	username, _ := values[valueUsername].(string)
	record := &Session{
		Token:      token,
		IsLoggedIn: loggedIn,
		Username:   username,
	}
	if createdAt, ok := values[valueCreatedAt].(int64); ok && createdAt > 0 {
		record.CreatedAt = time.Unix(createdAt, 0).UTC()
	}
	record.normalize()
	return record
}
