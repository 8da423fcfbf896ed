package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturable/verifactu-sif/internal/application/invoicing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoicing *invoicing.Service
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Registros de facturación VERI*FACTU
	records := api.Group("/invoicing")
	recordHandler := NewRecordHandler(deps.Invoicing)
	records.Post("/registrations", recordHandler.Register)
	records.Post("/cancellations", recordHandler.Cancel)
	records.Post("/issuers/:issuerId/submissions", recordHandler.Submit)
	records.Get("/issuers/:issuerId/chain", recordHandler.ChainHead)
	records.Get("/issuers/:issuerId/records", recordHandler.List)
}
