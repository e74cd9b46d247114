package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos. UnitCost y Stock se manejan vía ajustes.
type ProductUseCase struct {
	txRunner ports.TxRunner
	recorder *appinv.Recorder
	repo     repository.ProductRepository
	audit    ports.AuditTrail
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner ports.TxRunner, recorder *appinv.Recorder, repo repository.ProductRepository, audit ports.AuditTrail) *ProductUseCase {
	if audit == nil {
		audit = ports.NopAudit{}
	}
	return &ProductUseCase{txRunner: txRunner, recorder: recorder, repo: repo, audit: audit}
}

// Create crea un producto. InitialStock entra al pool principal como purchase_received.
func (uc *ProductUseCase) Create(ctx context.Context, shopID, actorID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.SKU == "":
		return nil, domain.NewValidationError("sku", "es requerido")
	case in.Name == "":
		return nil, domain.NewValidationError("name", "es requerido")
	case in.UnitCost.IsNegative() || in.UnitPrice.IsNegative():
		return nil, domain.NewValidationError("unit_price", "los precios no pueden ser negativos")
	case in.InitialStock < 0:
		return nil, domain.NewValidationError("initial_stock", "no puede ser negativo")
	case in.ReorderPoint < 0 || in.ReorderQuantity < 0:
		return nil, domain.NewValidationError("reorder_point", "los valores de reorden no pueden ser negativos")
	}

	now := time.Now()
	product := &entity.Product{
		ID:              uuid.New().String(),
		ShopID:          shopID,
		SKU:             in.SKU,
		Barcode:         strings.TrimSpace(in.Barcode),
		Name:            in.Name,
		Description:     in.Description,
		UnitCost:        in.UnitCost,
		UnitPrice:       in.UnitPrice,
		ReorderPoint:    in.ReorderPoint,
		ReorderQuantity: in.ReorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		if err := s.Products.Create(ctx, product); err != nil {
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}
		_, res, err := uc.recorder.Apply(ctx, s, appinv.Movement{
			ShopID:    shopID,
			ProductID: product.ID,
			BranchID:  entity.MainStoreID,
			Delta:     in.InitialStock,
			Reason:    entity.ReasonPurchaseReceived,
			ActorID:   actorID,
			Notes:     "Stock inicial",
		})
		product.Stock = res.Current
		return err
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, domain.NewValidationError("sku", "ya existe un producto con el SKU "+in.SKU)
	}
	if err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "product.create",
		Resource:   "product",
		ResourceID: product.ID,
		After:      map[string]any{"sku": product.SKU, "stock": product.Stock},
		OccurredAt: now,
	})
	return toProductResponse(product), nil
}

// GetByID obtiene un producto de la tienda.
func (uc *ProductUseCase) GetByID(ctx context.Context, shopID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFoundError("producto", id)
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. No permite modificar UnitCost ni Stock.
func (uc *ProductUseCase) Update(ctx context.Context, shopID, actorID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFoundError("producto", id)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.NewValidationError("name", "no puede quedar vacío")
		}
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Barcode != nil {
		product.Barcode = strings.TrimSpace(*in.Barcode)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return nil, domain.NewValidationError("unit_price", "no puede ser negativo")
		}
		product.UnitPrice = *in.UnitPrice
	}
	if in.ReorderPoint != nil {
		product.ReorderPoint = *in.ReorderPoint
	}
	if in.ReorderQuantity != nil {
		product.ReorderQuantity = *in.ReorderQuantity
	}
	if product.ReorderPoint < 0 || product.ReorderQuantity < 0 {
		return nil, domain.NewValidationError("reorder_point", "los valores de reorden no pueden ser negativos")
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "product.update",
		Resource:   "product",
		ResourceID: id,
		After:      in,
		OccurredAt: product.UpdatedAt,
	})
	return toProductResponse(product), nil
}

// List lista productos de la tienda con paginación.
func (uc *ProductUseCase) List(ctx context.Context, shopID string, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:              p.ID,
		ShopID:          p.ShopID,
		SKU:             p.SKU,
		Barcode:         p.Barcode,
		Name:            p.Name,
		Description:     p.Description,
		UnitCost:        p.UnitCost,
		UnitPrice:       p.UnitPrice,
		Stock:           p.Stock,
		ReorderPoint:    p.ReorderPoint,
		ReorderQuantity: p.ReorderQuantity,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
