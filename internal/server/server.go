package server

import (
	"context"
	"net/http"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/campaign"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/config"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/contact"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/email"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/sender"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/unlock"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/user"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	walletHandler := wallet.NewHandler(db, emailService)
	contactHandler := contact.NewHandler(db)
	unlockHandler := unlock.NewHandler(db, unlock.Prices{
		Contact: cfg.ContactUnlockPrice,
		Company: cfg.CompanyUnlockPrice,
	})

	provider := sender.NewHTTPProvider(cfg.VerifyProviderURL, cfg.VerifyProviderKey)
	senderService := sender.NewService(sender.NewRepository(db), provider, cfg.SenderChangeLimit)
	senderHandler := sender.NewHandler(senderService)

	resolver := campaign.NewResolver(contact.NewRepository(db), cfg.RecipientSendPrice)
	campaignService := campaign.NewService(
		campaign.NewRepository(db),
		resolver,
		senderService,
		email.NewDispatcher(emailService),
	)
	campaignHandler := campaign.NewHandler(campaignService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.GET("/wallet/ledger", walletHandler.GetLedger)
		protected.POST("/wallet/topup", walletHandler.TopUp)

		protected.GET("/contacts", contactHandler.ListContacts)
		protected.GET("/contacts/:id", contactHandler.GetContact)
		protected.GET("/companies/:id", contactHandler.GetCompany)

		protected.POST("/contacts/:id/unlock", unlockHandler.UnlockContact)
		protected.POST("/companies/:id/unlock", unlockHandler.UnlockCompany)
		protected.POST("/unlocks/bulk", unlockHandler.UnlockBulk)

		protected.POST("/sender/verify", senderHandler.StartVerify)
		protected.GET("/sender/status", senderHandler.CheckStatus)

		protected.POST("/campaigns", campaignHandler.Create)
		protected.GET("/campaigns", campaignHandler.List)
		protected.POST("/campaigns/preview", campaignHandler.Preview)
		protected.GET("/campaigns/:id", campaignHandler.Get)
		protected.POST("/campaigns/:id/send", campaignHandler.Send)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/users/:userID/credits", walletHandler.GrantCredits)
		admin.GET("/users/:userID/reconciliation", walletHandler.Reconcile)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
