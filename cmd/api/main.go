package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"blogauth/internal/config"
	"blogauth/internal/database"
	"blogauth/internal/middleware"
	"blogauth/internal/modules/auth"
	"blogauth/internal/modules/federation"
	"blogauth/internal/modules/federation/provider"
	"blogauth/internal/pkg/token"
	"blogauth/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	credRepo := repository.NewRefreshCredentialRepository(db)

	signer := token.NewSigner(cfg.SigningKey)
	verifier := token.NewVerifier(cfg.VerifyKey)

	authService := auth.NewService(userRepo, credRepo, signer, verifier, cfg.AccessTTL, cfg.RefreshTTL)
	authHandler := auth.NewHandler(authService)

	var providers []provider.Provider
	if cfg.Google.Configured() {
		providers = append(providers, provider.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL))
	}
	if cfg.GitHub.Configured() {
		providers = append(providers, provider.NewGitHub(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL))
	}
	if len(providers) == 0 {
		log.Println("no OAuth providers configured, federation endpoints will reject all requests")
	}

	linker := federation.NewService(db)
	stateService := federation.NewStateService(signer, verifier, cfg.StateTTL)
	federationHandler := federation.NewHandler(linker, stateService, provider.NewRegistry(providers...), authService, cfg.WebBaseURL)

	r := gin.Default()

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		federationHandler.RegisterPublicRoutes(v1, middleware.OptionalAuth(verifier))

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(verifier))
		{
			authHandler.RegisterProtectedRoutes(protected)
			federationHandler.RegisterProtectedRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				authHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
