package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/transfer"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// TransferHandler expone el motor de transferencias (protegido).
type TransferHandler struct {
	uc       *transfer.UseCase
	shopName string
}

// NewTransferHandler construye el handler. shopName aparece en la guía de remisión.
func NewTransferHandler(uc *transfer.UseCase, shopName string) *TransferHandler {
	return &TransferHandler{uc: uc, shopName: shopName}
}

// Create godoc
// @Summary      Crear transferencia
// @Description  Valida ubicaciones y stock de origen (salvo borrador) y asigna el número TRF-YYYYMMDD-NNNN.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Origen, destino y líneas"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.Context(), shopID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) Get(c *fiber.Ctx) error {
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
// @Summary      Listar transferencias
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        status     query  string  false  "Estado"
// @Param        branch_id  query  string  false  "Sucursal origen o destino ('none' = almacén principal)"
// @Param        limit      query  int     false  "Límite"  default(20)
// @Param        offset     query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransferListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	limit, offset := pageParams(c)
	out, err := h.uc.List(c.Context(), shopID, repository.TransferFilter{
		Status:   entity.TransferStatus(c.Query("status")),
		BranchID: c.Query("branch_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListStale godoc
// @Summary      Transferencias estancadas en tránsito
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.TransferListResponse
// @Router       /api/transfers/stale [get]
func (h *TransferHandler) ListStale(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.ListStale(c.Context(), shopID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Submit godoc
// @Summary      Enviar borrador a aprobación
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/submit [post]
func (h *TransferHandler) Submit(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Submit(ctx, shopID, userID, id)
	})
}

// Approve godoc
// @Summary      Aprobar transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Approve(ctx, shopID, userID, id)
	})
}

// Reject godoc
// @Summary      Rechazar transferencia
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la transferencia"
// @Param        body  body  dto.RejectTransferRequest  true  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	var in dto.RejectTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Reject(ctx, shopID, userID, id, in)
	})
}

// Ship godoc
// @Summary      Despachar transferencia
// @Description  Descuenta todas las líneas del origen de forma atómica.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la transferencia"
// @Param        body  body  dto.ShipTransferRequest  false  "Transportista y guía"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/ship [post]
func (h *TransferHandler) Ship(c *fiber.Ctx) error {
	var in dto.ShipTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Ship(ctx, shopID, userID, id, in)
	})
}

// Receive godoc
// @Summary      Recibir transferencia (total o parcial)
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la transferencia"
// @Param        body  body  dto.ReceiveTransferRequest  true  "Cantidades recibidas y dañadas"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/receive [post]
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Receive(ctx, shopID, userID, id, in)
	})
}

// Cancel godoc
// @Summary      Cancelar transferencia
// @Description  Si ya fue despachada, devuelve al origen lo no recibido.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la transferencia"
// @Param        body  body  dto.CancelTransferRequest  true  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.act(c, func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error) {
		return h.uc.Cancel(ctx, shopID, userID, id, in)
	})
}

// DeliveryNote godoc
// @Summary      Guía de remisión en PDF
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la transferencia"
// @Success      200  {file}    file
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/delivery-note [get]
func (h *TransferHandler) DeliveryNote(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == "" {
		return unauthorized(c)
	}
	pdf, filename, err := h.uc.DeliveryNote(c.Context(), shopID, h.shopName, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(pdf)
}

type transferAction func(ctx context.Context, shopID, userID, id string) (*dto.TransferResponse, error)

func (h *TransferHandler) act(c *fiber.Ctx, fn transferAction) error {
	shopID, userID := GetShopID(c), GetUserID(c)
	if shopID == "" || userID == "" {
		return unauthorized(c)
	}
	out, err := fn(c.Context(), shopID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
