package family

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

func NewHandler(svc *Service, cache middleware.CacheStore) *Handler {
	return &Handler{svc: svc, cache: cache}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("/families", auth.RequireRole(auth.RoleAdministrator, auth.RoleSecretary))
	staff.GET("", h.Search)
	staff.GET("/:id", h.Get)
	staff.GET("/:id/members", h.Members)
	staff.GET("/:id/active-members", h.ActiveMembers)
	staff.POST("", h.Create)
	staff.PUT("/:id", h.Update)
	staff.POST("/:id/members", h.AddMember)
	staff.DELETE("/:id/members/:customer_id", h.RemoveMember)

	admin := api.Group("/families", auth.RequireRole(auth.RoleAdministrator))
	admin.DELETE("/:id", h.Delete)
}

func errorStatus(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrMemberNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
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
	var f Family
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &f); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusCreated, f)
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
	f, err := h.svc.Get(c.Request().Context(), id, vis)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var f Family
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.ID = id
	if err := h.svc.Update(c.Request().Context(), &f); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusOK, f)
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
		items = []*Family{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) Members(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	members, err := h.svc.Members(c.Request().Context(), id, vis)
	if err != nil {
		return errorStatus(err)
	}
	if members == nil {
		members = []*Member{}
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) AddMember(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddMember(c.Request().Context(), id, req.CustomerID, req.Relationship); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusOK, map[string]interface{}{"family_id": id, "customer_id": req.CustomerID})
}

func (h *Handler) RemoveMember(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	customerID, err := intParam(c, "customer_id")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveMember(c.Request().Context(), id, customerID); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ActiveMembers(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	members, err := h.svc.ActiveMembers(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, members)
}
