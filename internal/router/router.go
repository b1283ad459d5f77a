package router

import (
	"bugpilot/internal/accounts"
	"bugpilot/internal/database"
	"bugpilot/internal/handlers"
	"bugpilot/internal/middleware"
	"bugpilot/internal/projects"
	"bugpilot/internal/storage"
	"bugpilot/internal/tickets"
	"bugpilot/internal/users"
	"crypto/rsa"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type HandlerDependencies struct {
	UserRepo  database.UserRepository
	DBPinger  database.DBPinger
	PublicKey *rsa.PublicKey

	Accounts  *accounts.Service
	Projects  *projects.Service
	Tickets   *tickets.Service
	Directory *users.Directory

	UploadDir          string
	MetricsAllowedIPs  []string
	CORSAllowedOrigins []string
	TracingEnabled     bool
}

func SetupRouter(deps HandlerDependencies) http.Handler {
	// Handler initialisieren
	authHandlers := handlers.NewAuthHandlers(deps.Accounts)
	projectHandlers := handlers.NewProjectHandlers(deps.Projects)
	ticketHandlers := handlers.NewTicketHandlers(deps.Tickets)
	userHandlers := handlers.NewUserHandlers(deps.Directory)

	r := chi.NewRouter()

	// Globale Middlewares
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(deps.CORSAllowedOrigins)))
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestMetaContext)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("BugPilot ist online!"))
	})
	r.Get("/health", handlers.HealthCheckHandler(deps.DBPinger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Gatekeeper(deps.MetricsAllowedIPs))
		r.Handle("/metrics", promhttp.Handler())
	})

	if deps.UploadDir != "" {
		fs := http.StripPrefix(storage.URLPrefix, http.FileServer(storage.FileSystem(deps.UploadDir)))
		r.Handle(storage.URLPrefix+"*", fs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandlers.LoginHandler)
			r.Post("/send-otp", authHandlers.SendOTPHandler)
			r.Post("/verify-otp", authHandlers.VerifyOTPHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(deps.PublicKey, deps.UserRepo))

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandlers.CreateProjectHandler)
				r.Get("/", projectHandlers.GetMyProjectsHandler)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", projectHandlers.GetProjectDetailsHandler)
					r.Post("/members", projectHandlers.AddMembersHandler)
				})
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", ticketHandlers.CreateTicketHandler)
				r.Get("/my-tickets", ticketHandlers.GetMyTicketsHandler)
				r.Get("/project/{projectID}", ticketHandlers.GetProjectTicketsHandler)

				r.Route("/{ticketID}", func(r chi.Router) {
					r.Get("/", ticketHandlers.GetTicketHandler)
					r.Put("/", ticketHandlers.UpdateTicketHandler)
					r.Delete("/", ticketHandlers.DeleteTicketHandler)
					r.Post("/comments", ticketHandlers.AddCommentHandler)
					r.Post("/upload-screenshot", ticketHandlers.UploadScreenshotHandler)
				})
			})

			r.Get("/users/search", userHandlers.SearchUsersHandler)
		})
	})

	if deps.TracingEnabled {
		return otelhttp.NewHandler(r, "bugpilot")
	}
	return r
}
