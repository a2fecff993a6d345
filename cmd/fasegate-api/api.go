package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/nvelasco/fasegate/internal/maildrop"
	"github.com/nvelasco/fasegate/pkg/catalog"
	"github.com/nvelasco/fasegate/pkg/clients"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/session"
	"github.com/nvelasco/fasegate/pkg/web"
)

type API struct {
	logger           *slog.Logger
	sessions         session.Store
	catalog          *catalog.Catalog
	store            ledger.Store
	collaborator     *clients.Client
	composer         maildrop.Composer
	eventBus         eventbus.EventBus
	supervisorEmails string
	validate         *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	sessions session.Store,
	cat *catalog.Catalog,
	store ledger.Store,
	collaborator *clients.Client,
	composer maildrop.Composer,
	eventBus eventbus.EventBus,
	supervisorEmails string,
) *API {
	return &API{
		logger:           logger,
		sessions:         sessions,
		catalog:          cat,
		store:            store,
		collaborator:     collaborator,
		composer:         composer,
		eventBus:         eventBus,
		supervisorEmails: supervisorEmails,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.sessions,
		a.catalog,
		a.store,
		a.collaborator,
		a.composer,
		a.eventBus,
		a.supervisorEmails,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fasegate API")
	})

	s := app.Group("/sessions")
	s.Post("/", handlers.OpenSession)
	s.Get("/:id", handlers.GetSession)
	s.Delete("/:id", handlers.CloseSession)

	s.Get("/:id/phases", handlers.GetPhases)
	s.Get("/:id/phases/:phaseId/tasks", handlers.GetTasks)
	s.Put("/:id/phases/:phaseId/tasks/:taskId/completed", handlers.ToggleTask)

	s.Post("/:id/transition", handlers.RequestTransition)
	s.Post("/:id/transition/confirm", handlers.ConfirmTransition)
	s.Delete("/:id/transition", handlers.CancelTransition)
	s.Post("/:id/rewind", handlers.Rewind)

	s.Post("/:id/notify", handlers.Notify)
	s.Post("/:id/notify/recipient", handlers.PickRecipient)
	s.Delete("/:id/notify", handlers.CancelNotify)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
