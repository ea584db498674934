// Package web はログイン画面・登録画面などの HTML を提供します。
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// テンプレート名
const (
	PageIndex     = "index.html"
	PageRegister  = "register.html"
	PageDashboard = "dashboard.html"
)

// Templates は埋め込みテンプレートを読み込みます。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// Mount はテンプレートを登録し、ログイン画面と登録画面のルートを追加します。
func Mount(router *gin.Engine) {
	router.SetHTMLTemplate(Templates())
	router.GET("/", handleIndex)
	router.GET("/register.html", handleRegister)
}

// handleIndex はログイン画面を返します。?success=1 と ?error=1 を表示に反映します。
func handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, PageIndex, gin.H{
		"Success": c.Query("success") != "",
		"Error":   c.Query("error") != "",
	})
}

// handleRegister は登録画面を返します。
func handleRegister(c *gin.Context) {
	c.HTML(http.StatusOK, PageRegister, gin.H{
		"Error": c.Query("error"),
	})
}
