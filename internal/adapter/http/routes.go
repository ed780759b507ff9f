package http

import (
	"io/fs"
	"log/slog"
	nethttp "net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const APIPrefix = "/api/v1"

type AppOptions struct {
	AppName     string
	CORSOrigins []string
	// Static, when set, is served at "/" as a single page application.
	Static fs.FS
	Logger *slog.Logger
}

// NewApp builds the fiber application with every route mounted.
func NewApp(h *Handler, authn Authenticator, opts AppOptions) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(AccessLog(logger.With("component", "http")))
	app.Use(recover.New())
	if len(opts.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(opts.CORSOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		}))
	}

	app.Get("/health", h.Health)
	RegisterRoutes(app.Group(APIPrefix), h, RequireAuth(authn))

	if opts.Static != nil {
		app.Use("/", filesystem.New(filesystem.Config{
			Root:         nethttp.FS(opts.Static),
			Index:        "index.html",
			NotFoundFile: "index.html",
		}))
	}
	return app
}

func RegisterRoutes(r fiber.Router, h *Handler, requireAuth fiber.Handler) {
	a := r.Group("/auth")
	a.Post("/signup", h.Signup)
	a.Post("/login", h.Login)
	a.Post("/logout", requireAuth, h.Logout)
	a.Get("/me", requireAuth, h.Me)

	r.Get("/providers", h.ListProviders)
	r.Get("/providers/:id/models", h.ListModels)

	p := r.Group("/profile", requireAuth)
	p.Get("/", h.GetProfile)
	p.Put("/personal", h.UpdatePersonalData)
	p.Put("/content", h.UpdateCVContent)
	p.Get("/preview", h.Preview)

	s := r.Group("/settings", requireAuth)
	s.Get("/", h.GetSettings)
	s.Put("/", h.UpdateSettings)
	s.Delete("/api-key", h.DeleteAPIKey)

	c := r.Group("/cvs", requireAuth)
	c.Get("/", h.ListCVs)
	c.Post("/", h.CreateCV)
	c.Get("/:id", h.GetCV)
	c.Delete("/:id", h.DeleteCV)
	c.Get("/:id/status", h.CVStatus)
	c.Get("/:id/pdf", h.CVPDF)
}
