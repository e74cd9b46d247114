package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/checkout"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
)

// CheckoutHandler ventas, órdenes y cola de descuentos (protegido).
type CheckoutHandler struct {
	binder *checkout.Binder
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(binder *checkout.Binder) *CheckoutHandler {
	return &CheckoutHandler{binder: binder}
}

// Checkout godoc
// @Summary      Registrar venta
// @Description  Pre-valida stock de todas las líneas, crea la orden y descuenta stock. Con faltantes responde 409 sin crear la orden.
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "Líneas y pagos"
// @Success      201   {object}  dto.CheckoutResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.CheckoutResponse
// @Router       /api/checkout [post]
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.binder.Checkout(c.Context(), shopID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusConflict).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetOrder godoc
// @Summary      Obtener orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	out, err := h.binder.GetOrder(c.Context(), shopID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// VoidOrder godoc
// @Summary      Anular orden
// @Description  Devuelve a su ubicación el stock ya descontado y cancela los descuentos pendientes.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.VoidOrderRequest  true  "Motivo"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/void [post]
func (h *CheckoutHandler) VoidOrder(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.VoidOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.binder.VoidOrder(c.Context(), shopID, userID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListDeductions godoc
// @Summary      Cola de descuentos de stock
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estados separados por coma (pending,failed,...)"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.DeductionJobResponse
// @Router       /api/deductions [get]
func (h *CheckoutHandler) ListDeductions(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	var statuses []string
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	limit, offset := pageParams(c)
	out, err := h.binder.ListDeductions(c.Context(), shopID, statuses, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RequeueDeduction godoc
// @Summary      Reencolar descuento fallido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del descuento"
// @Success      200  {object}  dto.DeductionJobResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/deductions/{id}/requeue [post]
func (h *CheckoutHandler) RequeueDeduction(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	out, err := h.binder.RequeueDeduction(c.Context(), shopID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
