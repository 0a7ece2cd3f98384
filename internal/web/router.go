// Package web wires the Fiber application: templates, middlewares and the
// page routes.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
	"github.com/saturnino-fabrica-de-software/facegate/internal/stream"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/middleware"
)

//go:embed views/*.html views/layouts/*.html
var viewsFS embed.FS

// ViewEngine returns the template engine backed by the embedded views.
func ViewEngine() *html.Engine {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(views), ".html")
}

type Dependencies struct {
	Gallery  *service.GalleryService
	Auth     *service.AuthService
	Engine   *capture.Engine
	Hub      *stream.Hub
	Sessions *session.Manager
	DB       *pgxpool.Pool
}

// dbPinger adapts the pool to the readiness probe, keeping the ping
// bounded by the database package timeout.
type dbPinger struct {
	pool *pgxpool.Pool
}

func (p dbPinger) Ping(ctx context.Context) error {
	return database.HealthCheck(ctx, p.pool)
}

type Router struct {
	app          *fiber.App
	logger       *slog.Logger
	deps         *Dependencies
	loginLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facegate",
		Views:        ViewEngine(),
		ViewsLayout:  "layouts/main",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check endpoints (no auth required)
	var pinger handler.Pinger
	if r.deps.DB != nil {
		pinger = dbPinger{pool: r.deps.DB}
	}
	healthHandler := handler.NewHealthHandler(pinger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	r.app.Use(middleware.LoadSession(r.deps.Sessions))

	// Login and signup, with credential attempts throttled per client
	authHandler := handler.NewAuthHandler(r.deps.Auth, r.logger)
	r.loginLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	r.app.Get("/login", authHandler.LoginPage)
	r.app.Post("/login", r.loginLimiter.Handler(), authHandler.Login)
	r.app.Get("/signup", authHandler.SignupPage)
	r.app.Post("/signup", r.loginLimiter.Handler(), authHandler.Signup)

	// Everything else requires a logged-in operator
	authed := r.app.Group("/", middleware.RequireLogin())

	recognizeHandler := handler.NewRecognizeHandler(r.deps.Engine, r.deps.Hub, r.logger)
	authed.Get("/", recognizeHandler.Page)
	authed.Post("/recognize/start", recognizeHandler.Start)
	authed.Post("/recognize/stop", recognizeHandler.Stop)
	authed.Get("/recognize/stream", recognizeHandler.Stream)

	facesHandler := handler.NewFacesHandler(r.deps.Gallery, r.deps.Engine, r.logger)
	authed.Get("/faces", facesHandler.Manage)
	authed.Get("/faces/add", facesHandler.AddPage)
	authed.Post("/faces/add", facesHandler.AddSave)
	authed.Post("/faces/add/capture", facesHandler.Capture)
	authed.Get("/faces/add/preview", facesHandler.Preview)
	authed.Get("/faces/delete", facesHandler.DeletePage)
	authed.Get("/faces/:id/image", facesHandler.Image)
	authed.Post("/faces/:id/edit", facesHandler.Edit)
	authed.Post("/faces/:id/delete", facesHandler.RequestDelete)
	authed.Post("/faces/:id/confirm", facesHandler.ConfirmDelete)
	authed.Post("/faces/:id", facesHandler.Save)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.loginLimiter != nil {
		r.loginLimiter.Stop()
	}

	return r.app.Shutdown()
}
