package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/facturable/verifactu-sif/internal/application/invoicing"
	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/internal/infrastructure/aeat"
	"github.com/facturable/verifactu-sif/internal/infrastructure/postgres"
	httpRouter "github.com/facturable/verifactu-sif/internal/interfaces/http"
	"github.com/facturable/verifactu-sif/pkg/config"
	"github.com/facturable/verifactu-sif/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("aeat_production", cfg.AEAT.Production).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	chainRepo := postgres.NewChainRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	system := record.ComputerSystem{
		VendorName:                cfg.System.VendorName,
		VendorNIF:                 cfg.System.VendorNIF,
		Name:                      cfg.System.Name,
		ID:                        cfg.System.ID,
		Version:                   cfg.System.Version,
		InstallationNumber:        cfg.System.InstallationNumber,
		OnlySupportsVerifactu:     cfg.System.OnlySupportsVerifactu,
		SupportsMultipleTaxpayers: cfg.System.SupportsMultipleTaxpayers,
		HasMultipleTaxpayers:      cfg.System.HasMultipleTaxpayers,
	}

	// Cliente SOAP AEAT — solo se arma si hay certificado configurado.
	// Sin certificado la instancia genera y encadena registros pero no remite.
	var submitter aeat.RecordSubmitter
	if cfg.AEAT.CertPath != "" {
		cert, err := aeat.LoadCertificate(cfg.AEAT.CertPath, cfg.AEAT.CertPassword)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.AEAT.CertPath).Msg("cargar certificado AEAT")
		}
		client := aeat.NewClient(system, record.FiscalIdentifier{
			Name: cfg.AEAT.TaxpayerName,
			NIF:  cfg.AEAT.TaxpayerNIF,
		}).
			SetCertificate(cert).
			SetProduction(cfg.AEAT.Production)
		if cfg.AEAT.RepresentativeNIF != "" {
			client.SetRepresentative(&record.FiscalIdentifier{
				Name: cfg.AEAT.RepresentativeName,
				NIF:  cfg.AEAT.RepresentativeNIF,
			})
		}
		submitter = client
	} else {
		log.Warn().Msg("AEAT_CERT_PATH no configurado: la remisión a la AEAT está deshabilitada")
	}

	qr := aeat.NewQRGenerator().SetProduction(cfg.AEAT.Production)

	invoicingSvc := invoicing.NewService(txRunner, chainRepo, submitter, qr, system, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Invoicing: invoicingSvc,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
