package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// InventoryHandler maneja stock, ajustes y reposición (protegido).
type InventoryHandler struct {
	stockUC         *inventory.StockUseCase
	replenishmentUC *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler de inventario.
func NewInventoryHandler(stockUC *inventory.StockUseCase, replenishmentUC *inventory.ReplenishmentUseCase) *InventoryHandler {
	return &InventoryHandler{stockUC: stockUC, replenishmentUC: replenishmentUC}
}

// GetStock godoc
// @Summary      Stock efectivo de un producto
// @Description  Sin branch_id devuelve el pool principal. Una sucursal sin entrada propia refleja el pool principal.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "ID del producto"
// @Param        branch_id   query  string  false  "ID de la sucursal"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	out, err := h.stockUC.GetStock(c.Context(), shopID, c.Params("product_id"), c.Query("branch_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetReorderSettings godoc
// @Summary      Configurar punto y cantidad de reorden
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Param        body        body  dto.ReorderSettingsRequest  true  "Ubicación y valores de reorden"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id}/settings [put]
func (h *InventoryHandler) SetReorderSettings(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.ReorderSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.stockUC.SetReorderSettings(c.Context(), shopID, userID, c.Params("product_id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AdjustStock godoc
// @Summary      Ajuste manual de stock
// @Description  purchase_received y return suman; damage y loss restan; correction y other aceptan ambos signos.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "Producto, ubicación, cantidad y motivo"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.stockUC.AdjustStock(c.Context(), shopID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListAdjustments godoc
// @Summary      Historial de ajustes
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Producto"
// @Param        branch_id   query  string  false  "Sucursal ('none' = almacén principal)"
// @Param        reference   query  string  false  "Referencia (orden, transferencia, conciliación)"
// @Param        reason      query  string  false  "Motivo"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AdjustmentListResponse
// @Router       /api/inventory/adjustments [get]
func (h *InventoryHandler) ListAdjustments(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	limit, offset := pageParams(c)
	out, err := h.stockUC.ListAdjustments(c.Context(), shopID, repository.AdjustmentFilter{
		ProductID: c.Query("product_id"),
		BranchID:  c.Query("branch_id"),
		Reference: c.Query("reference"),
		Reason:    entity.AdjustmentReason(c.Query("reason")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos en o por debajo del punto de reorden, ordenados por déficit relativo.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "ID de la sucursal (vacío = almacén principal)"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	list, err := h.replenishmentUC.GenerateReplenishmentList(c.Context(), shopID, c.Query("branch_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}
