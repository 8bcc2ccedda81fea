package requisition

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
	read.GET("/requisitions", h.ListRequisitions)
	read.GET("/requisitions/:id", h.GetRequisition)
	read.GET("/requisitions/suggestions", h.ListSuggestions)

	write := api.Group("", auth.RequireRole(auth.RoleSuperAdmin, auth.RoleFacilityAdmin, auth.RoleFacilityUser))
	write.POST("/requisitions", h.CreateRequisition)

	admin := api.Group("", auth.RequireRole(auth.RoleSuperAdmin, auth.RoleFacilityAdmin))
	admin.PATCH("/requisitions/:id", h.ApplyAction)
	admin.GET("/requisitions/bulk-list", h.GetBulkList)
	admin.POST("/requisitions/bulk-list", h.AddToBulkList)
	admin.DELETE("/requisitions/bulk-list", h.ClearBulkList)
	admin.PUT("/requisitions/bulk-list/:index", h.UpdateBulkItem)
	admin.DELETE("/requisitions/bulk-list/:index", h.RemoveBulkItem)
	admin.POST("/requisitions/bulk-list/submit", h.SubmitBulkList)
}

// sessionFrom builds the acting session from the authenticated identity.
// A facility query parameter may narrow a super or warehouse admin to one
// facility.
func sessionFrom(c echo.Context) Session {
	sess, _ := scopedSession(c)
	return sess
}

// scopedSession is sessionFrom for reads that filter by facility. It refuses
// callers who would otherwise see every facility without being allowed to.
func scopedSession(c echo.Context) (Session, error) {
	id, _ := auth.IdentityFromContext(c.Request().Context())
	sess := Session{
		UserName:   id.Name,
		Department: id.Department,
	}
	if sess.UserName == "" {
		sess.UserName = id.UserID
	}
	if len(id.Roles) > 0 {
		sess.Role = id.Roles[0]
	}
	facility, err := auth.ScopeFacility(id, c.QueryParam("facility"))
	sess.Facility = facility
	return sess, err
}

func toHTTPError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ve.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "requisition not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateRequisition(c echo.Context) error {
	var in NewRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.Create(c.Request().Context(), sessionFrom(c), in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRequisition(c echo.Context) error {
	r, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRequisitions(c echo.Context) error {
	pg := pagination.FromContext(c)
	sess, err := scopedSession(c)
	if err != nil {
		return err
	}
	params := map[string]string{
		"facility": sess.Facility,
		"status":   c.QueryParam("status"),
		"priority": c.QueryParam("priority"),
		"kind":     c.QueryParam("kind"),
		"item":     c.QueryParam("item"),
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ApplyAction(c echo.Context) error {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.Apply(c.Request().Context(), sessionFrom(c), c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListSuggestions(c echo.Context) error {
	sess, err := scopedSession(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Suggestions(c.Request().Context(), sess, sess.Facility)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []Suggestion{}
	}
	return c.JSON(http.StatusOK, items)
}

// -- bulk list --

type bulkAddRequest struct {
	RequisitionID string        `json:"requisition_id"`
	Entry         BulkListEntry `json:"entry"`
}

type bulkQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func bulkListJSON(c echo.Context, entries []BulkListEntry) error {
	if entries == nil {
		entries = []BulkListEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetBulkList(c echo.Context) error {
	return bulkListJSON(c, h.svc.BulkList(sessionFrom(c)))
}

// AddToBulkList stages either an existing requisition or a free entry such
// as an accepted suggestion.
func (h *Handler) AddToBulkList(c echo.Context) error {
	var req bulkAddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess := sessionFrom(c)
	var (
		entries []BulkListEntry
		err     error
	)
	if req.RequisitionID != "" {
		entries, err = h.svc.AddToBulkList(c.Request().Context(), sess, req.RequisitionID)
	} else {
		entries, err = h.svc.AddEntry(sess, req.Entry)
	}
	if err != nil {
		return toHTTPError(err)
	}
	return bulkListJSON(c, entries)
}

func (h *Handler) UpdateBulkItem(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	var req bulkQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return bulkListJSON(c, h.svc.UpdateBulkItemQuantity(sessionFrom(c), idx, req.Quantity))
}

func (h *Handler) RemoveBulkItem(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	return bulkListJSON(c, h.svc.RemoveFromBulkList(sessionFrom(c), idx))
}

func (h *Handler) ClearBulkList(c echo.Context) error {
	h.svc.ClearBulkList(sessionFrom(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitBulkList(c echo.Context) error {
	r, err := h.svc.SubmitBulkRequisition(c.Request().Context(), sessionFrom(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}
