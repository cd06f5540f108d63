package customer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gousa/visacrm/internal/platform/auth"
	"github.com/gousa/visacrm/internal/platform/db"
	"github.com/gousa/visacrm/internal/platform/middleware"
	"github.com/gousa/visacrm/pkg/pagination"
)

type Handler struct {
	svc   *Service
	cache middleware.CacheStore
}

// NewHandler wires the customer endpoints. cache may be nil when listings are
// not cached.
func NewHandler(svc *Service, cache middleware.CacheStore) *Handler {
	return &Handler{svc: svc, cache: cache}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("/customers", auth.RequireRole(auth.RoleAdministrator, auth.RoleSecretary))
	staff.GET("", h.Search)
	staff.GET("/ci-availability", h.CheckCI)
	staff.GET("/:id", h.Get)
	staff.POST("", h.Create)
	staff.PUT("/:id", h.Update)

	admin := api.Group("/customers", auth.RequireRole(auth.RoleAdministrator))
	admin.DELETE("/:id", h.Delete)
}

func errorStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCI), errors.Is(err, ErrDuplicatePassport):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Create(c.Request().Context(), &req)
	if err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cust, err := h.svc.Get(c.Request().Context(), id, vis)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var cust Customer
	if err := c.Bind(&cust); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cust.ID = id
	if err := h.svc.Update(c.Request().Context(), &cust); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusOK, cust)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Search(c echo.Context) error {
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), vis, pg.Limit, pg.Offset)
	if err != nil {
		return errorStatus(err)
	}
	if items == nil {
		items = []*Customer{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) CheckCI(c echo.Context) error {
	exclude, _ := strconv.Atoi(c.QueryParam("exclude_id"))
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CheckCI(c.Request().Context(), c.QueryParam("ci"), exclude, vis)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, res)
}
