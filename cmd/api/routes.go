package main

import (
	"log"
	"net/http"

	httphandlers "saverr/internal/interfaces/http"
	"saverr/internal/shared/config"
	"saverr/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)
	mux.HandleFunc("/api/health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/signup", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("/api/auth/confirm", deps.AuthHandler.HandleConfirm)
	mux.HandleFunc("/api/auth/resend-code", deps.AuthHandler.HandleResendCode)
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/refresh", deps.AuthHandler.HandleRefresh)
	mux.HandleFunc("/api/auth/forgot-password", deps.AuthHandler.HandleForgotPassword)
	mux.HandleFunc("/api/auth/reset-password", deps.AuthHandler.HandleResetPassword)
	mux.HandleFunc("/api/auth/me", deps.AuthHandler.HandleMe)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Verifier)

	mux.Handle("/api/accounts/link-token", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleLinkToken)))
	mux.Handle("/api/accounts/", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleAccounts)))
	mux.Handle("/api/accounts/{id}", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleAccountByID)))
	mux.Handle("/api/accounts/{id}/refresh", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleRefresh)))
	mux.Handle("/api/accounts/{id}/sync", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleSync)))
	mux.Handle("/api/accounts/{id}/transactions", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleTransactions)))

	mux.Handle("/api/analytics/cash-flow", authMiddleware(http.HandlerFunc(deps.AnalyticsHandler.HandleCashFlow)))
	mux.Handle("/api/analytics/spending-by-category", authMiddleware(http.HandlerFunc(deps.AnalyticsHandler.HandleSpendingByCategory)))
	mux.Handle("/api/analytics/budget-comparison", authMiddleware(http.HandlerFunc(deps.AnalyticsHandler.HandleBudgetComparison)))
	mux.Handle("/api/analytics/savings-progress", authMiddleware(http.HandlerFunc(deps.AnalyticsHandler.HandleSavingsProgress)))
	mux.Handle("/api/budgets/{month}", authMiddleware(http.HandlerFunc(deps.AnalyticsHandler.HandleBudgetByMonth)))

	mux.Handle("/api/goals/", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleGoals)))
	mux.Handle("/api/goals/{id}", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleGoalByID)))
	mux.Handle("/api/goals/{id}/contribute", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleContribute)))

	mux.Handle("/api/plans/", authMiddleware(http.HandlerFunc(deps.PlanHandler.HandlePlans)))
	mux.Handle("/api/plans/{id}/deactivate", authMiddleware(http.HandlerFunc(deps.PlanHandler.HandleDeactivate)))

	mux.Handle("/api/chat/message", authMiddleware(http.HandlerFunc(deps.ChatHandler.HandleMessage)))
	mux.Handle("/api/chat/generate-plan", authMiddleware(http.HandlerFunc(deps.ChatHandler.HandleGeneratePlan)))
	mux.Handle("/api/chat/suggest-goals", authMiddleware(http.HandlerFunc(deps.ChatHandler.HandleSuggestGoals)))

	mux.Handle("/api/notifications/register-device", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterDevice)))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(middleware.Tracing(mux)))
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	return handler
}
