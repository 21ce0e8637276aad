package activity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bitacora/bitacora/internal/platform/auth"
	"github.com/bitacora/bitacora/pkg/pagination"
)

type Handler struct {
	repo   Repository
	logger zerolog.Logger
}

func NewHandler(repo Repository, logger zerolog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	ag := g.Group("/activity-log", auth.RequireSession())
	ag.POST("", h.Record)
	ag.GET("", h.List, auth.RequireAdmin())
}

type recordRequest struct {
	Term string `json:"termino" form:"termino"`
}

func (h *Handler) Record(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())

	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cuerpo de la solicitud inválido"})
	}
	term := strings.TrimSpace(req.Term)
	if term == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "termino es obligatorio"})
	}

	if err := h.repo.Record(c.Request().Context(), sess.UserID, term); err != nil {
		h.logger.Error().Err(err).Msg("activity: record failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)

	entries, total, err := h.repo.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("activity: list failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, params.Limit, params.Offset))
}
