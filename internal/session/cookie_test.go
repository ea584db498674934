package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookieName = "test_session"

type failingDestroyStore struct {
	*MemoryStore
}

func (s failingDestroyStore) Destroy(ctx context.Context, token string) error {
	return errors.New("backend unavailable")
}

// flakyLoadStore は failNext が立っている間、次の Load を 1 回だけ失敗させます。
type flakyLoadStore struct {
	*MemoryStore
	failNext atomic.Bool
}

func (s *flakyLoadStore) Load(ctx context.Context, token string) (*Session, error) {
	if s.failNext.CompareAndSwap(true, false) {
		return nil, errors.New("backend timeout")
	}
	return s.MemoryStore.Load(ctx, token)
}

func newCookieRouter(backend Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions(testCookieName, NewCookieStore(backend, []byte("test-secret"))))

	router.GET("/login/:name", func(c *gin.Context) {
		s := sessions.Default(c)
		SetAuthenticated(s, c.Param("name"))
		if err := s.Save(); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/touch", func(c *gin.Context) {
		s := sessions.Default(c)
		Touch(s)
		if err := s.Save(); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		s := sessions.Default(c)
		c.String(http.StatusOK, Username(s))
	})
	router.GET("/logout", func(c *gin.Context) {
		if err := Destroy(sessions.Default(c)); err != nil {
			if errors.Is(err, ErrDestroy) {
				c.String(http.StatusConflict, "destroy failed")
				return
			}
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func doRequest(router http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", testCookieName)
	return nil
}

func TestCookieStoreRoundTrip(t *testing.T) {
	backend := NewMemoryStore(0)
	router := newCookieRouter(backend)

	rec := doRequest(router, "/login/alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, 1, backend.Len())

	rec = doRequest(router, "/whoami", cookie)
	assert.Equal(t, "alice", rec.Body.String())

	// クッキーなしでは匿名
	rec = doRequest(router, "/whoami")
	assert.Empty(t, rec.Body.String())
}

func TestCookieStoreKeepsTokenAcrossSaves(t *testing.T) {
	backend := NewMemoryStore(0)
	router := newCookieRouter(backend)

	first := sessionCookie(t, doRequest(router, "/touch"))
	second := sessionCookie(t, doRequest(router, "/login/alice", first))

	assert.Equal(t, 1, backend.Len())
	rec := doRequest(router, "/whoami", second)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestCookieStoreRejectsTamperedCookie(t *testing.T) {
	router := newCookieRouter(NewMemoryStore(0))

	cookie := sessionCookie(t, doRequest(router, "/login/alice"))
	tampered := &http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}

	rec := doRequest(router, "/whoami", tampered)
	assert.Empty(t, rec.Body.String())

	// 別の鍵で署名されたクッキーも拒否する
	other := gin.New()
	other.Use(sessions.Sessions(testCookieName, NewCookieStore(NewMemoryStore(0), []byte("other-secret"))))
	other.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, Username(sessions.Default(c)))
	})
	rec = doRequest(other, "/whoami", cookie)
	assert.Empty(t, rec.Body.String())
}

func TestCookieStoreDestroy(t *testing.T) {
	backend := NewMemoryStore(0)
	router := newCookieRouter(backend)

	cookie := sessionCookie(t, doRequest(router, "/login/alice"))

	rec := doRequest(router, "/logout", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)
	assert.Equal(t, 0, backend.Len())

	// 古いトークンを再送しても認証されない
	rec = doRequest(router, "/whoami", cookie)
	assert.Empty(t, rec.Body.String())
}

func TestCookieStoreDestroyFailure(t *testing.T) {
	backend := failingDestroyStore{NewMemoryStore(0)}
	router := newCookieRouter(backend)

	cookie := sessionCookie(t, doRequest(router, "/login/alice"))

	rec := doRequest(router, "/logout", cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(router, "/whoami", cookie)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestCookieStoreLoadFailureKeepsCookie(t *testing.T) {
	backend := &flakyLoadStore{MemoryStore: NewMemoryStore(0)}
	router := newCookieRouter(backend)
	router.GET("/isnew", func(c *gin.Context) {
		if IsNew(sessions.Default(c)) {
			c.String(http.StatusOK, "new")
			return
		}
		c.String(http.StatusOK, "existing")
	})

	cookie := sessionCookie(t, doRequest(router, "/login/alice"))

	backend.failNext.Store(true)
	rec := doRequest(router, "/isnew", cookie)
	assert.Equal(t, "existing", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	backend.failNext.Store(true)
	rec = doRequest(router, "/whoami", cookie)
	assert.Empty(t, rec.Body.String())

	// 障害が解消すれば元のセッションで認証されます。
	rec = doRequest(router, "/whoami", cookie)
	assert.Equal(t, "alice", rec.Body.String())
	assert.Equal(t, 1, backend.Len())
}
