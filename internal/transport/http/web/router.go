package webhttp

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradescope/internal/render"
	"tradescope/internal/session"
	"tradescope/internal/upload"
	"tradescope/internal/viewport"
)

// Exporter renders an HTML document to PNG.
type Exporter interface {
	PNG(ctx context.Context, html []byte) ([]byte, error)
}

// Router exposes the session API.
type Router struct {
	sessions *session.Store
	exporter Exporter
	views    *template.Template
}

func NewRouter(sessions *session.Store, exporter Exporter, views *template.Template) *Router {
	return &Router{sessions: sessions, exporter: exporter, views: views}
}

// Register mounts the JSON API under group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/sessions", r.handleCreate)
	s := group.Group("/sessions/:id", r.loadSession)
	s.GET("", r.handleGet)
	s.DELETE("", r.handleDelete)
	s.POST("/image", r.handleUpload)
	s.GET("/image/:view", r.handleImage)
	s.POST("/analyze", r.handleAnalyze)
	s.POST("/continuation", r.handleContinue)
	s.POST("/reset", r.handleReset)
	s.POST("/view", r.handleView)
	s.GET("/gauge", r.handleGauge)
	s.GET("/export.png", r.handleExport)

	v := s.Group("/viewer")
	v.POST("/wheel", r.handleWheel)
	v.POST("/pointer", r.handlePointer)
	v.POST("/reset", r.viewerOp((*viewport.Engine).Reset))
	v.POST("/open", r.viewerOp((*viewport.Engine).Open))
	v.POST("/close", r.viewerOp((*viewport.Engine).Close))
	v.POST("/resize", r.handleResize)
}

const sessionKey = "session"

func (r *Router) loadSession(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (r *Router) handleCreate(c *gin.Context) {
	s := r.sessions.Create()
	c.JSON(http.StatusCreated, s.Snapshot())
}

func (r *Router) handleGet(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Snapshot())
}

func (r *Router) handleDelete(c *gin.Context) {
	if err := r.sessions.Delete(current(c).ID()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, fmt.Errorf("%w: multipart field \"image\" required", errBadRequest))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, err)
		return
	}
	img, err := upload.FromBytes(data, fh.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, err)
		return
	}
	s := current(c)
	s.Upload(img)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (r *Router) handleImage(c *gin.Context) {
	data, mt, err := current(c).Image(session.View(c.Param("view")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mt, data)
}

func (r *Router) handleAnalyze(c *gin.Context) {
	s := current(c)
	if _, err := s.Analyze(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (r *Router) handleContinue(c *gin.Context) {
	s := current(c)
	if _, err := s.Continue(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (r *Router) handleReset(c *gin.Context) {
	s := current(c)
	s.Reset()
	c.JSON(http.StatusOK, s.Snapshot())
}

type viewRequest struct {
	View session.View `json:"view" binding:"required"`
}

func (r *Router) handleView(c *gin.Context) {
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s := current(c)
	if err := s.SetView(req.View); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

type wheelRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"delta_y"`
}

func (r *Router) handleWheel(c *gin.Context) {
	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s := current(c)
	s.Viewport(func(e *viewport.Engine) { e.Wheel(viewport.Point{X: req.X, Y: req.Y}, req.DeltaY) })
	c.JSON(http.StatusOK, s.Snapshot())
}

type pointerRequest struct {
	Action string  `json:"action" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (r *Router) handlePointer(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p := viewport.Point{X: req.X, Y: req.Y}
	var op func(e *viewport.Engine)
	switch req.Action {
	case "down":
		op = func(e *viewport.Engine) { e.PointerDown(p) }
	case "move":
		op = func(e *viewport.Engine) { e.PointerMove(p) }
	case "up":
		op = (*viewport.Engine).PointerUp
	case "leave":
		op = (*viewport.Engine).PointerLeave
	default:
		writeError(c, fmt.Errorf("%w: unknown pointer action %q", errBadRequest, req.Action))
		return
	}
	s := current(c)
	s.Viewport(op)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (r *Router) viewerOp(op func(e *viewport.Engine)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := current(c)
		s.Viewport(op)
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

func (r *Router) handleResize(c *gin.Context) {
	var box viewport.Size
	if err := c.ShouldBindJSON(&box); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if box.Width < 0 || box.Height < 0 {
		writeError(c, fmt.Errorf("%w: negative box size", errBadRequest))
		return
	}
	s := current(c)
	s.Viewport(func(e *viewport.Engine) { e.Resize(box) })
	c.JSON(http.StatusOK, s.Snapshot())
}

func (r *Router) handleGauge(c *gin.Context) {
	res, ok := current(c).Result()
	if !ok {
		writeError(c, session.ErrNoResult)
		return
	}
	html, err := render.GaugeHTML(render.GaugeInput{
		Recommendation: string(res.Recommendation),
		Confidence:     res.Confidence,
		Color:          session.StyleFor(res.Recommendation).Color,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) handleExport(c *gin.Context) {
	if r.exporter == nil {
		writeError(c, render.ErrExportDisabled)
		return
	}
	html, err := r.renderInline(current(c))
	if err != nil {
		writeError(c, err)
		return
	}
	png, err := r.exporter.PNG(c.Request.Context(), html)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", current(c).ID()+".png"))
	c.Data(http.StatusOK, "image/png", png)
}
