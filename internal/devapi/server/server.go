// Package server is the development API: an in-memory rendition of the academy
// REST contract that the back-office client talks to. Routes live under the
// configured base path and every reply uses the academy JSON envelope.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/httpx"
	"github.com/combatwarrior/academy/internal/common/middleware"
	"github.com/combatwarrior/academy/internal/devapi/auth"
	"github.com/combatwarrior/academy/internal/devapi/config"
	"github.com/combatwarrior/academy/internal/devapi/store"
)

// APIServer serves the academy API.
type APIServer struct {
	Router   *chi.Mux
	cfg      *config.ConfigParam
	store    *store.Store
	tokens   *auth.Tokens
	accounts *auth.Accounts
}

// CreateNewServer builds a server from a validated configuration. Demo records
// are seeded when the configuration asks for them.
func CreateNewServer(cfg *config.ConfigParam) (*APIServer, error) {
	expiry, err := cfg.Auth.GetTokenExpiry()
	if err != nil {
		return nil, fmt.Errorf("invalid token expiry: %w", err)
	}
	tokens := auth.NewTokens(cfg.Auth.SigningKey, expiry)
	s := &APIServer{
		Router:   chi.NewRouter(),
		cfg:      cfg,
		store:    store.New(),
		tokens:   tokens,
		accounts: auth.NewAccounts(cfg.Users, tokens),
	}
	if cfg.SeedDemoData {
		if err := s.seed(); err != nil {
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
	}
	return s, nil
}

// MountHandlers installs middleware and routes.
func (s *APIServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.Recover)
	if s.cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	if d := s.cfg.GetRequestTimeout(); d > 0 {
		s.Router.Use(middleware.RequestTimeout(d))
	}

	base := s.cfg.BasePath
	if base == "" {
		base = "/"
	}
	s.Router.Route(base, s.mountResourceHandlers)

	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("error walking router")
		}
	}
}

func (s *APIServer) mountResourceHandlers(r chi.Router) {
	requireAuth := auth.Middleware(s.tokens)

	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)

	r.Post("/auth/login", httpx.WrapHttpRsp(s.accounts.Login))
	r.With(requireAuth).Get("/auth/me", httpx.WrapHttpRsp(s.accounts.Me))
	r.Get("/certificates/verify/{code}", httpx.WrapHttpRsp(s.verifyCertificate))

	r.With(requireAuth).Get("/{entity}", httpx.WrapHttpRsp(s.listRecords))
	r.With(s.authUnlessPublicCreate).Post("/{entity}", httpx.WrapHttpRsp(s.createRecord))
	r.With(requireAuth).Get("/{entity}/{id}", httpx.WrapHttpRsp(s.getRecord))
	r.With(requireAuth).Put("/{entity}/{id}", httpx.WrapHttpRsp(s.updateRecord))
	r.With(requireAuth, auth.RequireRole("admin")).Delete("/{entity}/{id}", httpx.WrapHttpRsp(s.deleteRecord))
}

// authUnlessPublicCreate lets anonymous callers create records only in the
// collections that accept public submissions.
func (s *APIServer) authUnlessPublicCreate(next http.Handler) http.Handler {
	authed := auth.Middleware(s.tokens)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rulesFor(chi.URLParam(r, "entity")).publicCreate {
			next.ServeHTTP(w, r)
			return
		}
		authed.ServeHTTP(w, r)
	})
}

// GetVersionRsp reports the server build and the API contract version.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *APIServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &GetVersionRsp{
		ServerVersion: "Combat Warrior Academy Dev API: " + Version,
		ApiVersion:    APIVersion,
	})
}

func (s *APIServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS allows the browser front end on any origin to call the API.
func (s *APIServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
