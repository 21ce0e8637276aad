package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	pg := g.Group("/productos", auth.RequireSession())
	pg.GET("/buscar", h.Search)
	pg.GET("/categoria/:categoria", h.NamesByCategory)
	pg.GET("/:id", h.Get)

	admin := pg.Group("", auth.RequireAdmin())
	admin.POST("", h.Upsert)
	admin.DELETE("/:id", h.Delete)
}

func (h *Handler) Search(c echo.Context) error {
	products, err := h.service.Search(c.Request().Context(), c.QueryParam("busqueda"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) NamesByCategory(c echo.Context) error {
	names, err := h.service.NamesByCategory(c.Request().Context(), c.Param("categoria"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, names)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "id inválido"})
	}

	product, ingredients, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "producto no encontrado"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"producto":     product,
		"ingredientes": ingredients,
	})
}

func (h *Handler) Upsert(c echo.Context) error {
	var in ProductInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cuerpo de la solicitud inválido"})
	}

	id, err := h.service.Upsert(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "id inválido"})
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error al procesar la solicitud"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
