package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/telecare-api/internal/application/profile"
	"github.com/telecare-api/internal/application/session"
	"github.com/telecare-api/internal/application/videotoken"
	"github.com/telecare-api/internal/config"
	"github.com/telecare-api/internal/domain"
	"github.com/telecare-api/internal/transport/http/handler"
	appmiddleware "github.com/telecare-api/internal/transport/http/middleware"
	"github.com/telecare-api/internal/transport/ws"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	optionalAuthMw := appmiddleware.OptionalAuth(deps.JWTProvider)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		ProfileRepo:     deps.ProfileRepo,
		DeviceRepo:      deps.DeviceRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	profileSvc := profile.NewService(profile.ServiceDeps{
		ProfileRepo: deps.ProfileRepo,
		SessionRepo: deps.SessionRepo,
		Avatars:     deps.AvatarStore,
	})
	videoSvc := videotoken.NewService(deps.ProfileRepo, deps.JWTProvider)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	profileH := handler.NewProfileHandler(profileSvc)
	callH := handler.NewCallHandler(deps.Gateway)
	videoH := handler.NewVideoTokenHandler(videoSvc)
	feed := ws.NewHub(deps.Gateway, cfg.AllowedOrigins)

	r.Route("/v1", func(r chi.Router) {
		// Public routes (no auth)
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit, optionalAuthMw).Post("/profiles", profileH.Register)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/profiles/doctors", profileH.ListDoctors)
			r.Get("/profiles/{id}", profileH.Get)
			r.Put("/profiles/{id}", profileH.Update)
			r.Post("/profiles/{id}/avatar", profileH.UploadAvatar)
			r.Get("/profiles/{id}/avatar", profileH.AvatarURL)

			r.Post("/calls", callH.Send)
			r.Put("/calls/{callID}/status", callH.UpdateStatus)
			r.Get("/calls/active", callH.ListActive)

			r.Post("/video-tokens", videoH.Issue)

			r.Get("/ws", feed.Serve)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/profiles", profileH.List)
				r.Delete("/profiles/{id}", profileH.Delete)
				r.Post("/calls/cleanup", callH.Cleanup)
			})
		})
	})

	return r
}
