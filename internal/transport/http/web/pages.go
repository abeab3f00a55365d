package webhttp

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradescope/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sessionTemplate = "session.html"

func loadTemplates() (*template.Template, error) {
	return template.New("tradescope").ParseFS(templatesFS, "templates/*.html")
}

type pageData struct {
	Snap     session.Snapshot
	ImageSrc template.URL
	Stage    template.CSS
	// Inline marks the self-contained export rendition (no scripts, no API
	// calls, images as data URIs).
	Inline bool
}

// RegisterPages mounts the HTML shell.
func (r *Router) RegisterPages(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		s := r.sessions.Create()
		c.Redirect(http.StatusSeeOther, "/sessions/"+s.ID())
	})
	router.GET("/sessions/:id", r.loadSession, func(c *gin.Context) {
		c.HTML(http.StatusOK, sessionTemplate, r.page(current(c).Snapshot(), false))
	})
}

func (r *Router) page(snap session.Snapshot, inline bool) pageData {
	data := pageData{Snap: snap, Stage: template.CSS("transform: " + snap.Transform), Inline: inline}
	if snap.Image == nil {
		return data
	}
	view := snap.View
	if view == session.ViewContinuation && snap.Continuation == nil {
		view = session.ViewOriginal
	}
	data.ImageSrc = template.URL("/api/sessions/" + snap.ID + "/image/" + string(view))
	return data
}

// renderInline renders the session page with the displayed image embedded.
func (r *Router) renderInline(s *session.Session) ([]byte, error) {
	snap := s.Snapshot()
	data := r.page(snap, true)
	if snap.Image != nil {
		raw, mt, err := s.Image(snap.View)
		if err != nil {
			return nil, err
		}
		data.ImageSrc = template.URL("data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(raw))
	}
	var buf bytes.Buffer
	if err := r.views.ExecuteTemplate(&buf, sessionTemplate, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
