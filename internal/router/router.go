package router

import (
	"net/http"
	"time"

	"travel-marketplace/internal/handlers"
	"travel-marketplace/internal/middleware"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Ledger        *services.LedgerService
	Wallet        *services.WalletService
	Notifications *services.NotificationService
	Messaging     *services.MessagingService
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
}

func SetupRouter(svc Services, opts Options, logger zerolog.Logger) *mux.Router {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Auth, logger)
	userHandler := handlers.NewUserHandler(svc.Users, logger)
	requestHandler := handlers.NewRequestHandler(svc.Ledger, logger)
	offerHandler := handlers.NewOfferHandler(svc.Ledger, logger)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications, logger)
	messageHandler := handlers.NewMessageHandler(svc.Messaging, logger)
	walletHandler := handlers.NewWalletHandler(svc.Wallet, logger)

	client := string(models.RoleClient)
	agency := string(models.RoleAgency)
	admin := string(models.RoleAdmin)

	r := mux.NewRouter()

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger, time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst, opts.TrustedProxies).Middleware())
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestValidation())

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", authHandler.Refresh).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Authentication(svc.Auth, logger))

	protected.HandleFunc("/users/me", userHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/agencies", userHandler.ListAgencies).Methods(http.MethodGet)

	protected.Handle("/requests", onlyRoles(requestHandler.Create, client)).Methods(http.MethodPost)
	protected.HandleFunc("/requests", requestHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/requests/{id}", requestHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/requests/{id}/offers", requestHandler.ListOffers).Methods(http.MethodGet)
	protected.Handle("/requests/{id}/offers", onlyRoles(requestHandler.CreateOffer, agency)).Methods(http.MethodPost)

	protected.Handle("/offers", onlyRoles(offerHandler.ListOwn, agency)).Methods(http.MethodGet)
	protected.HandleFunc("/offers/{id}", offerHandler.Get).Methods(http.MethodGet)
	protected.Handle("/offers/{id}/accept", onlyRoles(offerHandler.Accept, client, admin)).Methods(http.MethodPost)
	protected.Handle("/offers/{id}/ticket", onlyRoles(offerHandler.UploadTicket, agency, admin)).Methods(http.MethodPost)
	protected.HandleFunc("/offers/{id}/payment-qr", offerHandler.PaymentQR).Methods(http.MethodGet)

	protected.HandleFunc("/notifications", notificationHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCount).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods(http.MethodPost)

	protected.HandleFunc("/conversations", messageHandler.StartConversation).Methods(http.MethodPost)
	protected.HandleFunc("/conversations", messageHandler.ListConversations).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{id}/messages", messageHandler.ListMessages).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{id}/messages", messageHandler.SendMessage).Methods(http.MethodPost)
	protected.HandleFunc("/conversations/{id}/read", messageHandler.MarkRead).Methods(http.MethodPost)

	wallet := protected.PathPrefix("/wallet").Subrouter()
	wallet.HandleFunc("/balance", walletHandler.GetBalance).Methods(http.MethodGet)
	wallet.HandleFunc("/balance/at-time", walletHandler.GetBalanceAtTime).Methods(http.MethodGet)
	wallet.HandleFunc("/transactions", walletHandler.ListTransactions).Methods(http.MethodGet)
	wallet.HandleFunc("/reconcile", walletHandler.Reconcile).Methods(http.MethodGet)
	wallet.HandleFunc("/deposit", walletHandler.Deposit).Methods(http.MethodPost)
	wallet.HandleFunc("/withdraw", walletHandler.Withdraw).Methods(http.MethodPost)

	return r
}

func onlyRoles(h http.HandlerFunc, roles ...string) http.Handler {
	return middleware.RequireRole(roles...)(h)
}
