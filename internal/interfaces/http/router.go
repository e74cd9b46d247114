package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/checkout"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/reconciliation"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/transfer"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/usecase"
	"github.com/DTBbuilds/smartduka-inventory/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC        *usecase.ProductUseCase
	BranchUC         *usecase.BranchUseCase
	StockUC          *inventory.StockUseCase
	ReplenishmentUC  *inventory.ReplenishmentUseCase
	TransferUC       *transfer.UseCase
	Checkout         *checkout.Binder
	ReconciliationUC *reconciliation.UseCase
	ShopName         string
	JWTSecret        string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	supervisors := RequireRole(jwt.RoleAdmin, jwt.RoleManager)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", supervisors, productHandler.Create)
	products.Put("/:id", supervisors, productHandler.Update)

	// Branches
	branches := api.Group("/branches")
	branchHandler := NewBranchHandler(deps.BranchUC)
	branches.Get("/", branchHandler.List)
	branches.Get("/:id", branchHandler.GetByID)
	branches.Post("/", adminOnly, branchHandler.Create)
	branches.Put("/:id", adminOnly, branchHandler.Update)

	// Inventory
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.StockUC, deps.ReplenishmentUC)
	inv.Get("/stock/:product_id", inventoryHandler.GetStock)
	inv.Put("/stock/:product_id/settings", supervisors, inventoryHandler.SetReorderSettings)
	inv.Get("/adjustments", inventoryHandler.ListAdjustments)
	inv.Post("/adjustments", supervisors, inventoryHandler.AdjustStock)
	inv.Get("/replenishment-list", inventoryHandler.GetReplenishmentList)

	// Transfers
	transfers := api.Group("/transfers")
	transferHandler := NewTransferHandler(deps.TransferUC, deps.ShopName)
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/", transferHandler.List)
	transfers.Get("/stale", transferHandler.ListStale)
	transfers.Get("/:id", transferHandler.Get)
	transfers.Get("/:id/delivery-note", transferHandler.DeliveryNote)
	transfers.Post("/:id/submit", transferHandler.Submit)
	transfers.Post("/:id/approve", supervisors, transferHandler.Approve)
	transfers.Post("/:id/reject", supervisors, transferHandler.Reject)
	transfers.Post("/:id/ship", transferHandler.Ship)
	transfers.Post("/:id/receive", transferHandler.Receive)
	transfers.Post("/:id/cancel", transferHandler.Cancel)

	// Checkout y órdenes
	checkoutHandler := NewCheckoutHandler(deps.Checkout)
	api.Post("/checkout", checkoutHandler.Checkout)
	orders := api.Group("/orders")
	orders.Get("/:id", checkoutHandler.GetOrder)
	orders.Post("/:id/void", supervisors, checkoutHandler.VoidOrder)
	deductions := api.Group("/deductions", supervisors)
	deductions.Get("/", checkoutHandler.ListDeductions)
	deductions.Post("/:id/requeue", checkoutHandler.RequeueDeduction)

	// Reconciliations
	recs := api.Group("/reconciliations")
	recHandler := NewReconciliationHandler(deps.ReconciliationUC)
	recs.Get("/", recHandler.List)
	recs.Get("/:id", recHandler.Get)
	recs.Post("/cash", recHandler.ReconcileCash)
	recs.Post("/stock", recHandler.ReconcileStock)
	recs.Post("/:id/investigate", supervisors, recHandler.InvestigateVariance)
	recs.Post("/:id/approve", supervisors, recHandler.Approve)
}
