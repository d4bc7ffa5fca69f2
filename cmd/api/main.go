package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/facturacion-sri/docs"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/facturacion-sri/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/facturacion-sri/internal/infrastructure/redis"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// @title                       Facturación electrónica SRI
// @version                     1.0
// @description                 Emisión de facturas y notas de crédito electrónicas ante el SRI (Ecuador).
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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
		Str("sri_environment", cfg.SRI.Environment).
		Str("sequence_backend", cfg.Sequence.Backend).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores := openStores(ctx, cfg, log)
	defer closeStores()

	m := metrics.New()

	certificates := billing.NewCertificateProvider(signer.Load, entity.CertificateRef{
		Path:     cfg.SRI.CertPath,
		KeyPath:  cfg.SRI.CertKeyPath,
		Password: entity.Secret(cfg.SRI.CertPassword),
	}, cfg.SRI.CertCacheTTL)

	orchestrator := billing.NewOrchestrator(billing.Deps{
		Documents:    stores.documents,
		Companies:    stores.companies,
		Tx:           stores.tx,
		Builder:      infrasri.NewXMLBuilderService(),
		Validator:    infrasri.NewSchemaValidator(),
		Signer:       signer.NewDigitalSignatureService(),
		Certificates: certificates,
		Authority:    infrasri.NewSOAPClient(cfg.SRI, log, m),
		Renderer:     infrapdf.NewRIDEGenerator(),
		Notifier:     billing.LogNotifier{Log: log.Component("notification")},
		Log:          log,
		Metrics:      m,
	}, billing.OrchestratorConfig{
		PollMaxDuration: cfg.SRI.PollMaxDuration,
		RedriveBackoff:  cfg.Redrive.Backoff,
	})

	redriver := billing.NewRedriver(stores.documents, orchestrator, cfg.Redrive, log, m)
	go func() {
		if err := redriver.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("re-drive programado detenido")
		}
	}()

	emitUC := billing.NewEmitUseCase(stores.documents, stores.companies, orchestrator, cfg.SRI.Environment)
	queryUC := billing.NewDocumentQueryUseCase(stores.documents, stores.companies,
		infrapdf.NewRIDEGenerator(), orchestrator, redriver)
	companyUC := usecase.NewCompanyUseCase(stores.companies, certificates)

	// La emisión incluye el sondeo de autorización; el timeout de escritura lo cubre.
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SRI.PollMaxDuration + 2*cfg.SRI.Timeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	docs.SwaggerInfo.Host = cfg.HTTP.Addr()
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación SRI API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:      companyUC,
		EmitUC:         emitUC,
		DocumentsQuery: queryUC,
		Metrics:        promhttp.Handler(),
		ServiceName:    cfg.App.Name,
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
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

	log.Info().Msg("aplicación detenida")
}

type storeSet struct {
	documents repository.DocumentRepository
	companies repository.CompanyRepository
	tx        repository.TxRunner
}

// openStores elige los almacenes según SEQUENCE_BACKEND: memory deja todo en
// memoria (desarrollo); postgres y redis persisten en PostgreSQL y difieren en
// dónde viven los contadores de secuenciales.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (storeSet, func()) {
	if cfg.Sequence.Backend == "memory" {
		log.Warn().Msg("almacenes en memoria: los comprobantes no sobreviven al reinicio")
		documents := memory.NewDocumentStore()
		return storeSet{
			documents: documents,
			companies: memory.NewCompanyStore(),
			tx:        &memory.TxRunner{Documents: documents, Sequences: memory.NewSequenceStore()},
		}, func() {}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	closers := []func(){pool.Close}

	var sequences repository.SequenceRepository
	if cfg.Sequence.Backend == "redis" {
		client, err := infraredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		closers = append(closers, func() { _ = client.Close() })
		sequences = infraredis.NewSequenceStore(client)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return storeSet{
		documents: postgres.NewDocumentRepository(pool),
		companies: postgres.NewCompanyRepository(pool),
		tx:        postgres.NewTxRunner(pool, sequences),
	}, closeAll
}
