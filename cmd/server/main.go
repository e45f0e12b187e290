package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WeCr8/goodbodybucks/internal/clock"
	"github.com/WeCr8/goodbodybucks/internal/config"
	"github.com/WeCr8/goodbodybucks/internal/database"
	"github.com/WeCr8/goodbodybucks/internal/handlers"
	"github.com/WeCr8/goodbodybucks/internal/ledger"
	"github.com/WeCr8/goodbodybucks/internal/repository"
	"github.com/WeCr8/goodbodybucks/internal/security"
	"github.com/WeCr8/goodbodybucks/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.TokenSecret == "" {
		log.Fatal("TOKEN_SECRET must be set")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	clk := clock.System()

	// Initialize repositories
	familyRepo := repository.NewFamilyRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	// Initialize services
	recorder := ledger.NewRecorder(ledgerRepo, clk)
	verifier := ledger.NewVerifier(ledgerRepo)
	tokens := security.NewTokenManager(cfg.TokenSecret, cfg.TokenDuration)
	timerService := service.NewTimerService(db, walletRepo, sessionRepo, clk, cfg.TxMaxRetries)
	txService := service.NewTransactionService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, recorder, timerService, clk, cfg.TxMaxRetries)
	alertService, err := service.NewAlertService(cfg.AWSRegion, cfg.AlertFrom, cfg.AlertFromName, cfg.AlertTo)
	if err != nil {
		log.Fatalf("Failed to initialize alert service: %v", err)
	}
	familyService := service.NewFamilyService(db, familyRepo, memberRepo, walletRepo, sessionRepo, purchaseRepo, ledgerRepo, recorder, verifier, timerService, alertService, clk)
	authService := service.NewAuthService(memberRepo, tokens, clk)

	// Initialize handlers
	middleware := handlers.NewMiddleware(tokens)
	authHandler := handlers.NewAuthHandler(authService)
	familyHandler := handlers.NewFamilyHandler(familyService)
	txHandler := handlers.NewTransactionHandler(txService)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	mux.HandleFunc("POST /api/families", familyHandler.SetupFamily)
	mux.HandleFunc("POST /api/families/{familyID}/bootstrap", familyHandler.Bootstrap)
	mux.HandleFunc("POST /api/token", authHandler.Token)

	// Family routes
	mux.HandleFunc("GET /api/state", middleware.RequireAuth(familyHandler.State))
	mux.HandleFunc("GET /api/catalog", middleware.RequireAuth(familyHandler.Catalog))
	mux.HandleFunc("GET /api/members/{memberID}/purchases", middleware.RequireAuth(familyHandler.PurchaseHistory))
	mux.HandleFunc("POST /api/members", middleware.RequireAdmin(familyHandler.AddMember))
	mux.HandleFunc("DELETE /api/members/{memberID}", middleware.RequireAdmin(familyHandler.RemoveMember))
	mux.HandleFunc("POST /api/members/{memberID}/access-code", middleware.RequireAdmin(authHandler.SetAccessCode))
	mux.HandleFunc("POST /api/kids/{kidID}/reset", middleware.RequireAdmin(familyHandler.ResetKid))
	mux.HandleFunc("PUT /api/settings/savings", middleware.RequireAdmin(familyHandler.UpdateSavingsSettings))
	mux.HandleFunc("GET /api/ledger", middleware.RequireAdmin(familyHandler.Ledger))
	mux.HandleFunc("POST /api/ledger/verify", middleware.RequireAdmin(familyHandler.VerifyChain))

	// Wallet and session routes
	mux.HandleFunc("POST /api/kids/{kidID}/purchases/screen", middleware.RequireAuth(txHandler.PurchaseScreen))
	mux.HandleFunc("POST /api/kids/{kidID}/purchases/food", middleware.RequireAuth(txHandler.PurchaseFood))
	mux.HandleFunc("POST /api/kids/{kidID}/session/start", middleware.RequireAuth(txHandler.StartSession))
	mux.HandleFunc("POST /api/kids/{kidID}/session/stop", middleware.RequireAuth(txHandler.StopSession))
	mux.HandleFunc("POST /api/kids/{kidID}/transfers/savings", middleware.RequireAuth(txHandler.TransferToSavings))
	mux.HandleFunc("POST /api/kids/{kidID}/transfers/spending", middleware.RequireAuth(txHandler.TransferToSpending))
	mux.HandleFunc("POST /api/kids/{kidID}/allotment", middleware.RequireAdmin(txHandler.DailyAllotment))
	mux.HandleFunc("POST /api/kids/{kidID}/reward", middleware.RequireAdmin(txHandler.Reward))
	mux.HandleFunc("POST /api/kids/{kidID}/consequences/time", middleware.RequireAdmin(txHandler.ConsequenceTime))
	mux.HandleFunc("POST /api/kids/{kidID}/consequences/money", middleware.RequireAdmin(txHandler.ConsequenceMoney))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}
