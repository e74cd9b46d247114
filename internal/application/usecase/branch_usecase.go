package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// BranchUseCase casos de uso CRUD para sucursales.
type BranchUseCase struct {
	repo repository.BranchRepository
}

// NewBranchUseCase construye el caso de uso.
func NewBranchUseCase(repo repository.BranchRepository) *BranchUseCase {
	return &BranchUseCase{repo: repo}
}

// Create crea una sucursal activa. El código se normaliza a mayúsculas y es único por tienda.
func (uc *BranchUseCase) Create(ctx context.Context, shopID string, in dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "es requerido")
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if entity.IsMainStore(strings.ToLower(code)) && code != "" {
		return nil, domain.NewValidationError("code", "el código está reservado")
	}
	now := time.Now()
	branch := &entity.Branch{
		ID:        uuid.New().String(),
		ShopID:    shopID,
		Code:      code,
		Name:      name,
		Address:   in.Address,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, branch); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError("code", "ya existe una sucursal con el código "+code)
		}
		return nil, err
	}
	return toBranchResponse(branch), nil
}

// GetByID obtiene una sucursal de la tienda.
func (uc *BranchUseCase) GetByID(ctx context.Context, shopID, id string) (*dto.BranchResponse, error) {
	branch, err := uc.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.NewNotFoundError("sucursal", id)
	}
	return toBranchResponse(branch), nil
}

// Update actualiza nombre, dirección o estado. Una sucursal inactiva no admite movimientos.
func (uc *BranchUseCase) Update(ctx context.Context, shopID, id string, in dto.UpdateBranchRequest) (*dto.BranchResponse, error) {
	branch, err := uc.repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.NewNotFoundError("sucursal", id)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.NewValidationError("name", "no puede quedar vacío")
		}
		branch.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		branch.Address = *in.Address
	}
	if in.Active != nil {
		branch.Active = *in.Active
	}
	branch.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, branch); err != nil {
		return nil, err
	}
	return toBranchResponse(branch), nil
}

// List lista sucursales de la tienda.
func (uc *BranchUseCase) List(ctx context.Context, shopID string, limit, offset int) (*dto.BranchListResponse, error) {
	list, err := uc.repo.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BranchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, *toBranchResponse(b))
	}
	return &dto.BranchListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toBranchResponse(b *entity.Branch) *dto.BranchResponse {
	return &dto.BranchResponse{
		ID:        b.ID,
		ShopID:    b.ShopID,
		Code:      b.Code,
		Name:      b.Name,
		Address:   b.Address,
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
