package scheduling

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
	staff := api.Group("/appointments", auth.RequireRole(auth.RoleAdministrator, auth.RoleSecretary))
	staff.GET("", h.Search)
	staff.GET("/:id", h.Get)
	staff.POST("", h.Create)
	staff.PUT("/:id", h.Update)
	staff.DELETE("/:id", h.Delete)

	staff.POST("/combo/preview", h.PreviewCombo)
	staff.POST("/combo", h.CreateCombo)
}

func errorStatus(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProcedureNotFound), errors.Is(err, ErrFamilyNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownType):
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
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Appointment(in)
	if err != nil {
		return errorStatus(err)
	}
	if err := h.svc.Create(c.Request().Context(), a); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusCreated, a)
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
	a, err := h.svc.Get(c.Request().Context(), id, vis)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Appointment(in)
	if err != nil {
		return errorStatus(err)
	}
	a.ID = id
	if err := h.svc.Update(c.Request().Context(), a); err != nil {
		return errorStatus(err)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusOK, a)
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

// Search filters by procedure_id, customer_id, status and a [from, to) range.
func (h *Handler) Search(c echo.Context) error {
	vis, err := db.ParseVisibility(c.QueryParam("deleted"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := Filter{Visibility: vis, Status: Status(c.QueryParam("status"))}
	f.ProcedureID, _ = strconv.Atoi(c.QueryParam("procedure_id"))
	f.CustomerID, _ = strconv.Atoi(c.QueryParam("customer_id"))
	if v := c.QueryParam("from"); v != "" {
		if f.From, err = ParseStart(v, h.svc.loc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from: "+err.Error())
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if f.To, err = ParseStart(v, h.svc.loc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to: "+err.Error())
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return errorStatus(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) PreviewCombo(c echo.Context) error {
	var req ComboRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.PreviewCombo(c.Request().Context(), &req)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, p)
}

type comboFailure struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// CreateCombo answers 201 with the created appointments, 422 with the tagged
// failure when storage rejected the batch, and 400 when the request is invalid.
func (h *Handler) CreateCombo(c echo.Context) error {
	var req ComboRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, comboFailure{Error: err.Error()})
	}
	result, err := h.svc.CreateCombo(c.Request().Context(), &req)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, comboFailure{Error: verr.Error(), Fields: verr.Fields})
	case err != nil:
		return errorStatus(err)
	case !result.Success:
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	middleware.Invalidate(c, h.cache)
	return c.JSON(http.StatusCreated, result)
}
