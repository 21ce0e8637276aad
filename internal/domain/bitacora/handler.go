package bitacora

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

// Handler exposes the bitácora facade over HTTP.
type Handler struct {
	facade *Facade
}

func NewHandler(facade *Facade) *Handler {
	return &Handler{facade: facade}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	bg := g.Group("/bitacora", auth.RequireSession())
	bg.GET("/buscar", h.Search)
	bg.GET("/:id", h.GetByID)
	bg.POST("", h.Upsert)
	bg.DELETE("/:id", h.Delete)
}

func (h *Handler) Search(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())

	q := SearchQuery{
		FreeText:    c.QueryParam("busqueda"),
		PatientName: c.QueryParam("paciente"),
	}
	if raw := strings.TrimSpace(c.QueryParam("mes")); raw != "" {
		if m, err := strconv.Atoi(raw); err == nil {
			q.Month = &m
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("anio")); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			q.Year = &y
		}
	}

	result := h.facade.Search(c.Request().Context(), q, sess)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetByID(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeError(c, inputErr("id inválido"))
	}

	entry, err := h.facade.GetByID(c.Request().Context(), id, sess)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Upsert(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())

	var in Input
	if err := c.Bind(&in); err != nil {
		return writeError(c, inputErr("cuerpo de la solicitud inválido"))
	}

	id, err := h.facade.Upsert(c.Request().Context(), in, sess)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

func (h *Handler) Delete(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeError(c, inputErr("id inválido"))
	}

	if err := h.facade.Delete(c.Request().Context(), id, sess); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// writeError maps the error taxonomy to HTTP statuses without leaking
// storage detail to the client.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch KindOf(err) {
	case KindInput:
		status = http.StatusBadRequest
	case KindNotFound:
		status = http.StatusNotFound
	case KindPermission:
		status = http.StatusForbidden
	}
	return c.JSON(status, map[string]string{"error": ClientMessage(err)})
}
