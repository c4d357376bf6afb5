package router

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"natours/internal/core/errs"
	"natours/internal/core/query"
	mdw "natours/internal/transport/http/middleware"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var alerts = map[string]string{
	"booking": "Your booking was successful! Please check your email for a confirmation. If your booking doesn't show up here immediately, please come back later.",
}

func setViews(r *gin.Engine) {
	t := template.Must(template.New("").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("$%.0f", v) },
	}).ParseFS(templateFS, "templates/*.tmpl"))
	r.SetHTMLTemplate(t)
}

// page 公共的模板变量：当前用户（可能为空）和提示
func page(c *gin.Context, title string, extra gin.H) gin.H {
	h := gin.H{"Title": title, "Alert": alerts[c.Query("alert")]}
	if u, ok := mdw.CurrentUser(c); ok {
		h["User"] = u
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func errNoRoute(c *gin.Context) error {
	return errs.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path))
}

func mountViews(r *gin.Engine, authn *mdw.Authenticator, d Deps) {
	optional := r.Group("", authn.OptionalAuthenticate())

	optional.GET("/", func(c *gin.Context) {
		tours, err := d.Stores.Tours.FindMany(c.Request.Context(), nil, query.Parse(url.Values{}))
		if err != nil {
			fail(c, err)
			return
		}
		c.HTML(http.StatusOK, "overview", page(c, "All Tours", gin.H{"Tours": tours}))
	})

	optional.GET("/tour/:slug", func(c *gin.Context) {
		t, err := d.Tours.BySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			fail(c, err)
			return
		}
		c.HTML(http.StatusOK, "tour", page(c, t.Name+" Tour", gin.H{"Tour": t}))
	})

	optional.GET("/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "login", page(c, "Log into your account", nil))
	})

	private := r.Group("", authn.Authenticate())

	private.GET("/me", func(c *gin.Context) {
		c.HTML(http.StatusOK, "account", page(c, "Your account", nil))
	})

	private.GET("/my-tours", func(c *gin.Context) {
		tours, err := d.Bookings.MyTours(c.Request.Context(), currentID(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.HTML(http.StatusOK, "overview", page(c, "My Tours", gin.H{"Tours": tours}))
	})
}
