package main

import (
	"context"
	"log"

	"saverr/internal/domain/account"
	"saverr/internal/domain/analytics"
	"saverr/internal/domain/chat"
	"saverr/internal/domain/goal"
	"saverr/internal/domain/notification"
	"saverr/internal/domain/plan"
	"saverr/internal/domain/sync"
	"saverr/internal/infrastructure/advisor"
	"saverr/internal/infrastructure/crypto"
	"saverr/internal/infrastructure/docstore"
	"saverr/internal/infrastructure/firebase"
	"saverr/internal/infrastructure/identity"
	"saverr/internal/infrastructure/ledger"
	"saverr/internal/infrastructure/postgres"
	httphandlers "saverr/internal/interfaces/http"
	"saverr/internal/shared/auth"
	"saverr/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	AccountHandler      *httphandlers.AccountHandler
	AnalyticsHandler    *httphandlers.AnalyticsHandler
	GoalHandler         *httphandlers.GoalHandler
	PlanHandler         *httphandlers.PlanHandler
	ChatHandler         *httphandlers.ChatHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	Verifier *auth.Verifier
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := docstore.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Repositories
	accountRepo := docstore.NewAccountRepository(store, encryptor)
	txnRepo := docstore.NewTransactionRepository(store)
	goalRepo := docstore.NewGoalRepository(store)
	planRepo := docstore.NewPlanRepository(store)
	budgetRepo := docstore.NewBudgetRepository(store)
	deviceRepo := docstore.NewDeviceRepository(store)

	// External clients
	ledgerClient := ledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.ClientID, cfg.Ledger.Secret)
	identityClient := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.ClientID, cfg.Identity.ClientSecret)
	advisorClient := advisor.NewClient(cfg.Advisor.BaseURL, cfg.Advisor.APIKey, cfg.Advisor.Model)

	// Push delivery is optional; without credentials the notification
	// service only maintains the device registry.
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Printf("WARN: push delivery disabled: %v", err)
		} else {
			messenger = fcm
		}
	}
	notificationService := notification.NewService(deviceRepo, messenger)

	// Domain services
	syncEngine := sync.NewEngine(ledgerClient, accountRepo, txnRepo, notificationService)
	analyticsEngine := analytics.NewEngine(accountRepo, txnRepo, budgetRepo)
	accountService := account.NewService(accountRepo, txnRepo, ledgerClient)
	goalService := goal.NewService(goalRepo)
	planService := plan.NewService(planRepo)
	chatService := chat.NewService(advisorClient, accountRepo, txnRepo, goalService, planService)

	verifier, err := auth.NewVerifier(cfg.Identity.JWKSURL(), cfg.Identity.Issuer, cfg.Identity.ClientID, cfg.Identity.JWKSRefresh)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Dependencies{
		DB:                  db,
		AuthHandler:         httphandlers.NewAuthHandler(identityClient),
		AccountHandler:      httphandlers.NewAccountHandler(accountService, syncEngine),
		AnalyticsHandler:    httphandlers.NewAnalyticsHandler(analyticsEngine, goalService, budgetRepo),
		GoalHandler:         httphandlers.NewGoalHandler(goalService),
		PlanHandler:         httphandlers.NewPlanHandler(planService),
		ChatHandler:         httphandlers.NewChatHandler(chatService),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService),
		Verifier:            verifier,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Verifier != nil {
		d.Verifier.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
