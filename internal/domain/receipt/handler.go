package receipt

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medsupply/medsupply/internal/platform/auth"
	"github.com/medsupply/medsupply/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleSuperAdmin, auth.RoleWarehouseAdmin, auth.RoleFacilityAdmin, auth.RoleFacilityUser))
	read.GET("/receipts", h.ListReceipts)
	read.GET("/receipts/:id", h.GetReceipt)

	write := api.Group("", auth.RequireRole(auth.RoleSuperAdmin, auth.RoleFacilityAdmin))
	write.POST("/receipts", h.CreateReceipt)
	write.PUT("/receipts/:id/lines/:index", h.UpdateLine)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "goods receipt not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateReceipt(c echo.Context) error {
	var g GoodsReceipt
	if err := c.Bind(&g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, _ := auth.IdentityFromContext(c.Request().Context())
	if g.Facility == "" {
		g.Facility = id.Facility
	}
	g.ReceivedBy = id.Name
	if g.ReceivedBy == "" {
		g.ReceivedBy = id.UserID
	}
	if err := h.svc.Create(c.Request().Context(), &g); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) GetReceipt(c echo.Context) error {
	g, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) ListReceipts(c echo.Context) error {
	pg := pagination.FromContext(c)
	id, _ := auth.IdentityFromContext(c.Request().Context())
	facility, err := auth.ScopeFacility(id, c.QueryParam("facility"))
	if err != nil {
		return err
	}
	items, total, err := h.svc.List(c.Request().Context(), facility, pg.Limit, pg.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type lineUpdateRequest struct {
	ReceivedQty int `json:"received_qty"`
	DamagedQty  int `json:"damaged_qty"`
}

func (h *Handler) UpdateLine(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	var req lineUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g, err := h.svc.UpdateLine(c.Request().Context(), c.Param("id"), idx, req.ReceivedQty, req.DamagedQty)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, g)
}
