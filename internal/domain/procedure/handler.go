package procedure

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gousa/visacrm/internal/platform/auth"
	"github.com/gousa/visacrm/internal/platform/db"
	"github.com/gousa/visacrm/internal/platform/middleware"
)

type Handler struct {
	svc   *Service
	cache middleware.CacheStore
}

func NewHandler(svc *Service, cache middleware.CacheStore) *Handler {
	return &Handler{svc: svc, cache: cache}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAdministrator, auth.RoleSecretary))
	staff.GET("/customers/:id/procedures", h.ListByCustomer)
	staff.GET("/procedures/:id", h.Get)
	staff.GET("/procedures/:id/logs", h.Logs)
	staff.POST("/procedures", h.Create)
	staff.PUT("/procedures/:id", h.Update)
	staff.DELETE("/procedures/:id", h.Delete)
}

func errorStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCustomerNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrUnknownCatalog):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func intParam(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var p Procedure
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = 0
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Get(c.Request().Context(), id, vis)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListByCustomer(c echo.Context) error {
	customerID, err := intParam(c, "id")
	if err != nil {
		return err
	}
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListByCustomer(c.Request().Context(), customerID, vis)
	if err != nil {
		return errorStatus(err)
	}
	if items == nil {
		items = []*Procedure{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var p Procedure
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Logs(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.svc.Logs(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err)
	}
	if entries == nil {
		entries = []*LogEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
