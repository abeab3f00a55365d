package webhttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradescope/internal/inference"
	"tradescope/internal/render"
	"tradescope/internal/session"
	"tradescope/internal/upload"
)

type errorBody struct {
	Error string `json:"error"`
	Label string `json:"label"`
}

// classify maps an error to its HTTP status and user-facing label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, inference.ErrAnalysisFailed):
		return http.StatusBadGateway, session.LabelAnalysisFailed
	case errors.Is(err, inference.ErrGenerationFailed), errors.Is(err, inference.ErrNoImageProduced):
		return http.StatusBadGateway, session.LabelGenerationFailed
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrStale):
		return http.StatusConflict, "Busy"
	case errors.Is(err, session.ErrNoImage),
		errors.Is(err, session.ErrNoResult),
		errors.Is(err, session.ErrNoContinuation),
		errors.Is(err, session.ErrUnknownView),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, inference.ErrNoPriorResult),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "Invalid Request"
	case errors.Is(err, render.ErrExportDisabled):
		return http.StatusServiceUnavailable, "Export Disabled"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

var errBadRequest = errors.New("bad request")

func writeError(c *gin.Context, err error) {
	status, label := classify(err)
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error(), Label: label})
}
