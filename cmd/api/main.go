package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/checkout"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/reconciliation"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/transfer"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/usecase"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	infraaudit "github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/audit"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
	infrapdf "github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/pdf"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/postgres"
	infraredis "github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/redis"
	httpRouter "github.com/DTBbuilds/smartduka-inventory/internal/interfaces/http"
	"github.com/DTBbuilds/smartduka-inventory/pkg/config"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
	"github.com/DTBbuilds/smartduka-inventory/pkg/telemetry"
)

const swaggerFile = "./docs/swagger.json"

// storage repositorios no transaccionales más el runner del driver elegido.
type storage struct {
	txRunner  ports.TxRunner
	repos     ports.Stores
	branches  repository.BranchRepository
	sequencer repository.Sequencer
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("configurar OpenTelemetry")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer store.close()

	// Secuenciador: Redis si está configurado; si no, el del driver de persistencia.
	sequencer := store.sequencer
	if cfg.Redis.Addr != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer client.Close()
		sequencer = infraredis.NewSequencer(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("secuenciador en Redis")
	}

	// Auditoría: siempre al log; además a Kafka si hay brokers.
	var sink infraaudit.Sink = infraaudit.NewLogSink(log.Named("audit"))
	if len(cfg.Kafka.Brokers) > 0 {
		sink = infraaudit.MultiSink{sink, infraaudit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)}
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.AuditTopic).Msg("auditoría publicada en Kafka")
	}
	auditTrail := infraaudit.NewAsyncTrail(sink, cfg.Audit.BufferSize, log.Named("audit"))

	recorder := inventory.NewRecorder(cfg.Inventory.AllowNegative(), log.Named("ledger"))

	productUC := usecase.NewProductUseCase(store.txRunner, recorder, store.repos.Products, auditTrail)
	branchUC := usecase.NewBranchUseCase(store.branches)
	stockUC := inventory.NewStockUseCase(store.txRunner, recorder, store.repos.Ledger, store.repos.Products, store.branches, store.repos.Adjustments, auditTrail)
	replenishmentUC := inventory.NewReplenishmentUseCase(store.repos.Ledger, store.branches)

	transferUC := transfer.NewUseCase(transfer.Config{
		StaleAfter:      cfg.Transfer.StaleAfter,
		NumberPrefix:    cfg.Transfer.NumberPrefix,
		ConflictRetries: cfg.Inventory.ConflictRetries,
	}, transfer.Deps{
		TxRunner:  store.txRunner,
		Recorder:  recorder,
		Transfers: store.repos.Transfers,
		Branches:  store.branches,
		Sequencer: sequencer,
		Notes:     infrapdf.NewMarotoDeliveryNoteGenerator(),
		Audit:     auditTrail,
		Logger:    log.Named("transfer"),
	})

	binder := checkout.NewBinder(checkout.Config{
		MaxAttempts: cfg.Deduction.MaxAttempts,
		BaseBackoff: cfg.Deduction.BaseBackoff,
		BatchSize:   cfg.Deduction.BatchSize,
	}, checkout.Deps{
		TxRunner:   store.txRunner,
		Recorder:   recorder,
		Orders:     store.repos.Orders,
		Deductions: store.repos.Deductions,
		Branches:   store.branches,
		Sequencer:  sequencer,
		Audit:      auditTrail,
		Logger:     log.Named("checkout"),
	})

	reconciliationUC := reconciliation.NewUseCase(reconciliation.Config{
		CashThreshold: cfg.Reconciliation.CashThreshold,
	}, reconciliation.Deps{
		TxRunner:        store.txRunner,
		Recorder:        recorder,
		Orders:          store.repos.Orders,
		Reconciliations: store.repos.Reconciliations,
		Branches:        store.branches,
		Audit:           auditTrail,
		Logger:          log.Named("reconciliation"),
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		checkout.NewWorker(binder, cfg.Deduction.Interval, log.Named("deductions")).Run(workerCtx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "SmartDuka Inventory API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:        productUC,
		BranchUC:         branchUC,
		StockUC:          stockUC,
		ReplenishmentUC:  replenishmentUC,
		TransferUC:       transferUC,
		Checkout:         binder,
		ReconciliationUC: reconciliationUC,
		ShopName:         cfg.App.Name,
		JWTSecret:        cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	cancelWorker()
	<-workerDone
	if err := auditTrail.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de auditoría")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL (aplicando el esquema) o el store en memoria según STORE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.App.StoreDriver == "memory" {
		s := memory.NewStore()
		log.Warn().Msg("persistencia en memoria: los datos se pierden al reiniciar")
		return &storage{
			txRunner:  memory.NewTxRunner(s),
			repos:     s.Repos(),
			branches:  memory.NewBranchRepository(s),
			sequencer: memory.NewSequencer(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		txRunner:  postgres.NewTxRunner(pool),
		repos:     postgres.NewStores(pool),
		branches:  postgres.NewBranchRepository(pool),
		sequencer: postgres.NewSequencer(pool),
		close:     pool.Close,
	}, nil
}
