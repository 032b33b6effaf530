package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/http/middleware"
	"transport-billing/internal/core/services"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/response"
)

// XLSXContentType is the media type of the bill register
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BillHandler handles bill endpoints
type BillHandler struct {
	billService *services.BillService
	log         *zap.Logger
}

// NewBillHandler creates a new bill handler
func NewBillHandler(billService *services.BillService, log *zap.Logger) *BillHandler {
	return &BillHandler{
		billService: billService,
		log:         logger.OrNop(log),
	}
}

// CreateBill handles bill creation
// @Summary Create bill
// @Description Issue a numbered bill. Amounts are computed from packages, rate and the GST rate.
// @Tags Bills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBillInput true "Bill data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /bills [post]
func (h *BillHandler) CreateBill(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req services.CreateBillInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	bill, err := h.billService.Create(c.UserContext(), p, &req, requestMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Created(c, "Bill created successfully", fiber.Map{
		"bill": bill,
	})
}

// ListBills handles listing bills
// @Summary List bills
// @Description Newest first. Staff see only their own bills.
// @Tags Bills
// @Produce json
// @Security BearerAuth
// @Param customer query string false "Customer name contains (case-insensitive)"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /bills [get]
func (h *BillHandler) ListBills(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bills, err := h.billService.List(c.UserContext(), p, listInput(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bills retrieved successfully", fiber.Map{
		"bills": bills,
		"count": len(bills),
	})
}

// GetBill handles getting one bill
// @Summary Get bill
// @Tags Bills
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bill ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bills/{id} [get]
func (h *BillHandler) GetBill(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid bill ID")
	}

	bill, err := h.billService.Get(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bill retrieved successfully", fiber.Map{
		"bill": bill,
	})
}

// UpdateBill handles partial bill updates
// @Summary Update bill
// @Description Fields present in the body replace stored values. Admin or the staff who created the bill.
// @Tags Bills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bill ID"
// @Param body body services.UpdateBillInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bills/{id} [put]
func (h *BillHandler) UpdateBill(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid bill ID")
	}

	var req services.UpdateBillInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	bill, err := h.billService.Update(c.UserContext(), p, id, &req, requestMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bill updated successfully", fiber.Map{
		"bill": bill,
	})
}

// DeleteBill handles bill deletion
// @Summary Delete bill
// @Description Admin only
// @Tags Bills
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bill ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid bill ID")
	}

	if err := h.billService.Delete(c.UserContext(), p, id, requestMeta(c)); err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bill deleted successfully", nil)
}

// DownloadBill handles PDF export
// @Summary Download bill PDF
// @Tags Bills
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Bill ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /bills/{id}/download [get]
func (h *BillHandler) DownloadBill(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid bill ID")
	}

	result, err := h.billService.Export(c.UserContext(), p, id, requestMeta(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Attachment(c, result.ContentType, result.Filename, result.Content)
}

// History handles the bill audit trail
// @Summary Bill history
// @Tags Bills
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bill ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bills/{id}/history [get]
func (h *BillHandler) History(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid bill ID")
	}

	events, err := h.billService.History(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bill history retrieved successfully", fiber.Map{
		"events": events,
	})
}

// Summary handles the per-staff totals
// @Summary Bill summary per staff
// @Tags Bills
// @Produce json
// @Security BearerAuth
// @Param customer query string false "Customer name contains (case-insensitive)"
// @Success 200 {object} response.Response
// @Router /bills/summary [get]
func (h *BillHandler) Summary(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	rows, err := h.billService.Summary(c.UserContext(), p, listInput(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Bill summary retrieved successfully", fiber.Map{
		"staff": rows,
	})
}

// Register handles the spreadsheet register download
// @Summary Download bill register
// @Tags Bills
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param customer query string false "Customer name contains (case-insensitive)"
// @Success 200 {file} file
// @Router /bills/register.xlsx [get]
func (h *BillHandler) Register(c *fiber.Ctx) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	content, err := h.billService.Register(c.UserContext(), p, listInput(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Attachment(c, XLSXContentType, "bill-register.xlsx", content)
}

func listInput(c *fiber.Ctx) services.ListBillsInput {
	customer := c.Query("customer")
	if customer == "" {
		customer = c.Query("customer_name")
	}
	return services.ListBillsInput{CustomerName: customer}
}

func requestMeta(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{IPAddress: c.IP()}
}
