package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout, auth.RequireSession())
	api.GET("/preferences", h.Preferences, auth.RequireSession())

	admin := api.Group("/users", auth.RequireAdmin())
	admin.GET("", h.ListUsers)
	admin.POST("", h.CreateUser)
	admin.PUT("/:id", h.UpdateUser)
	admin.DELETE("/:id", h.DeleteUser)

	api.GET("/patients", h.ListPatients, auth.RequireAdmin())
}

type loginRequest struct {
	Usuario    string `json:"usuario" form:"usuario"`
	Contrasena string `json:"contrasena" form:"contrasena"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Usuario *User  `json:"usuario"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.svc.Authenticate(c.Request().Context(), req.Usuario, req.Contrasena)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}

	token, err := h.issuer.Issue(h.svc.SessionFor(u))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token, Usuario: u})
}

// Logout exists for client symmetry; bearer tokens are discarded client-side.
func (h *Handler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{})
}

func (h *Handler) Preferences(c echo.Context) error {
	s, _ := auth.SessionFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":   s.UserID,
		"usr":  s.Name,
		"tipo": string(s.Role),
	})
}

type userRequest struct {
	Nombre      string `json:"nombre" form:"nombre"`
	Contrasena  string `json:"contrasena" form:"contrasena"`
	TipoUsuario string `json:"tipo_usuario" form:"tipo_usuario"`
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.CreateUser(c.Request().Context(), req.Nombre, req.Contrasena, req.TipoUsuario)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), id, req.Nombre, req.Contrasena, req.TipoUsuario)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "usuario no encontrado")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
	return c.JSON(http.StatusOK, patients)
}
