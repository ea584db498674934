package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/login-app/internal/events"
	"github.com/yourusername/login-app/internal/logging"
	"github.com/yourusername/login-app/internal/session"
	"github.com/yourusername/login-app/internal/web"
)

// リダイレクト先
const (
	pathEntry     = "/"
	pathRegister  = "/register.html"
	pathDashboard = "/dashboard"
)

// 登録画面に渡すエラーメッセージ
const (
	msgUsernameTaken   = "Username already taken"
	msgMissingFields   = "Username and password are required"
	msgSomethingWrong  = "Something went wrong"
	registeredLocation = pathEntry + "?success=1"
	loginErrorLocation = pathEntry + "?error=1"
)

// Handler は認証関連の HTTP ハンドラーです。
type Handler struct {
	svc      *Service
	activity events.ActivityStore
}

// NewHandler は Handler を作成します。activity は nil でも構いません。
func NewHandler(svc *Service, activity events.ActivityStore) *Handler {
	return &Handler{
		svc:      svc,
		activity: activity,
	}
}

// Mount は認証関連のルートを登録します。
func (h *Handler) Mount(r gin.IRoutes) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.GET(pathDashboard, RequireLogin(), h.Dashboard)
}

// Register は POST /register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	result := h.svc.Register(ctx, c.PostForm("username"), c.PostForm("password"))
	logResult(c, "register", result)

	switch result.Kind {
	case KindOK:
		c.Redirect(http.StatusFound, registeredLocation)
	case KindInvalidInput:
		c.Redirect(http.StatusFound, registerErrorLocation(msgMissingFields))
	case KindConflict:
		c.Redirect(http.StatusFound, registerErrorLocation(msgUsernameTaken))
	default:
		c.Redirect(http.StatusFound, registerErrorLocation(msgSomethingWrong))
	}
}

// Login は POST /login のハンドラーです。
// 失敗理由にかかわらず同じリダイレクトを返します。
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	result := h.svc.Login(ctx, c.PostForm("username"), c.PostForm("password"))
	logResult(c, "login", result)

	if !result.OK() {
		c.Redirect(http.StatusFound, loginErrorLocation)
		return
	}

	s := sessions.Default(c)
	session.SetAuthenticated(s, result.Username)
	if err := s.Save(); err != nil {
		logging.FromContext(ctx).Error("failed to save session", "error", err)
		c.Redirect(http.StatusFound, loginErrorLocation)
		return
	}

	h.svc.RecordLogin(ctx, result.Username)
	c.Redirect(http.StatusFound, pathDashboard)
}

// Logout は GET /logout のハンドラーです。
// セッションの破棄に失敗した場合はダッシュボードに戻します。
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	s := sessions.Default(c)
	username := session.Username(s)

	if err := session.Destroy(s); err != nil {
		logging.FromContext(ctx).Error("failed to destroy session", "error", err)
		c.Redirect(http.StatusFound, pathDashboard)
		return
	}

	h.svc.Logout(ctx, username)
	c.Redirect(http.StatusFound, pathEntry)
}

// Dashboard は GET /dashboard のハンドラーです。RequireLogin の後ろで使います。
func (h *Handler) Dashboard(c *gin.Context) {
	username := c.GetString(ContextUserKey)
	data := gin.H{"Username": username}

	if h.activity != nil {
		activity, err := h.activity.Get(c.Request.Context(), username)
		if err != nil {
			logging.FromContext(c.Request.Context()).Warn("failed to load activity", "error", err)
		} else if activity != nil && !activity.PreviousLoginAt.IsZero() {
			prev := activity.PreviousLoginAt
			data["PreviousLoginAt"] = &prev
		}
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, web.PageDashboard, data)
}

func registerErrorLocation(msg string) string {
	return pathRegister + "?error=" + url.QueryEscape(msg)
}

func logResult(c *gin.Context, action string, result Result) {
	logger := logging.FromContext(c.Request.Context())
	switch result.Kind {
	case KindOK:
		logger.Info(action+" succeeded", "username", result.Username)
	case KindInternal:
		logger.Error(action+" failed", "result", result.Kind.String(), "error", result.Err)
	default:
		logger.Info(action+" rejected", "result", result.Kind.String(), "reason", result.Err)
	}
}
