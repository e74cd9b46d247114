package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/reconciliation"
)

// ReconciliationHandler conciliaciones de caja y de stock (protegido).
type ReconciliationHandler struct {
	uc *reconciliation.UseCase
}

// NewReconciliationHandler construye el handler.
func NewReconciliationHandler(uc *reconciliation.UseCase) *ReconciliationHandler {
	return &ReconciliationHandler{uc: uc}
}

// ReconcileCash godoc
// @Summary      Conciliación de caja del día
// @Description  Compara el efectivo contado con los pagos en efectivo de las órdenes del día.
// @Tags         reconciliations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CashReconciliationRequest  true  "Fecha, sucursal y efectivo contado"
// @Success      201   {object}  dto.ReconciliationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reconciliations/cash [post]
func (h *ReconciliationHandler) ReconcileCash(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CashReconciliationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.ReconcileCash(c.Context(), shopID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ReconcileStock godoc
// @Summary      Conciliación de stock por conteo físico
// @Description  Registra las diferencias y corrige el ledger con ajustes de tipo correction.
// @Tags         reconciliations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockReconciliationRequest  true  "Conteos físicos"
// @Success      201   {object}  dto.ReconciliationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reconciliations/stock [post]
func (h *ReconciliationHandler) ReconcileStock(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.StockReconciliationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.ReconcileStock(c.Context(), shopID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// InvestigateVariance godoc
// @Summary      Registrar investigación de una diferencia
// @Tags         reconciliations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la conciliación"
// @Param        body  body  dto.InvestigateVarianceRequest  true  "Tipo, monto y notas"
// @Success      200   {object}  dto.ReconciliationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{id}/investigate [post]
func (h *ReconciliationHandler) InvestigateVariance(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.InvestigateVarianceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.InvestigateVariance(c.Context(), shopID, userID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Approve godoc
// @Summary      Aprobar conciliación
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la conciliación"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{id}/approve [post]
func (h *ReconciliationHandler) Approve(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.ApproveReconciliation(c.Context(), shopID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener conciliación
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la conciliación"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{id} [get]
func (h *ReconciliationHandler) Get(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Get(c.Context(), shopID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar conciliaciones
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        type    query  string  false  "cash | stock"
// @Param        from    query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ReconciliationListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reconciliations [get]
func (h *ReconciliationHandler) List(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	limit, offset := pageParams(c)
	out, err := h.uc.List(c.Context(), shopID, c.Query("type"), c.Query("from"), c.Query("to"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
