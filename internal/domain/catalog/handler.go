package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gousa/visacrm/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/catalogs", auth.RequireRole(auth.RoleAdministrator, auth.RoleSecretary))
	read.GET("/:kind", h.List)
	read.GET("/:kind/:id", h.Get)

	write := api.Group("/catalogs", auth.RequireRole(auth.RoleAdministrator))
	write.POST("/:kind", h.Create)
}

func (h *Handler) kind(c echo.Context) (Kind, error) {
	k, err := ParseKind(c.Param("kind"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown catalog: "+c.Param("kind"))
	}
	return k, nil
}

func (h *Handler) List(c echo.Context) error {
	kind, err := h.kind(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	kind, err := h.kind(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), kind, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "catalog entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Create(c echo.Context) error {
	kind, err := h.kind(c)
	if err != nil {
		return err
	}
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err = h.svc.Create(c.Request().Context(), kind, &e)
	switch {
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "an entry with that name already exists")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}
