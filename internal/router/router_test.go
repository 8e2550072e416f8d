package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"
	"travel-marketplace/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	logger := zerolog.Nop()
	store := repository.NewMemoryStore()
	notifications := services.NewNotificationService(store, nil, logger)
	wallet := services.NewWalletService(store, logger, "EUR")

	return SetupRouter(Services{
		Auth:          services.NewAuthService("test-secret", logger),
		Users:         services.NewUserService(store, logger),
		Ledger:        services.NewLedgerService(store, wallet, notifications, logger, "EUR"),
		Wallet:        wallet,
		Notifications: notifications,
		Messaging:     services.NewMessagingService(store, logger),
	}, Options{}, logger)
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type authResult struct {
	User         models.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
}

func register(t *testing.T, h http.Handler, name, email, role string) authResult {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResult](t, rec)
}

func TestRouter_Health(t *testing.T) {
	rec := call(t, newTestRouter(t), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_Authentication(t *testing.T) {
	h := newTestRouter(t)

	rec := call(t, h, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	alice := register(t, h, "Alice", "alice@example.com", "client")
	rec = call(t, h, http.MethodGet, "/api/v1/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, alice.User.ID, me.ID)

	rec = call(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_TokenTypes(t *testing.T) {
	h := newTestRouter(t)
	alice := register(t, h, "Alice", "alice@example.com", "client")
	require.NotEmpty(t, alice.RefreshToken)

	rec := call(t, h, http.MethodGet, "/api/v1/wallet/balance", alice.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": alice.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": alice.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	renewed := decode[authResult](t, rec)
	assert.Equal(t, alice.User.ID, renewed.User.ID)
	assert.NotEmpty(t, renewed.RefreshToken)

	rec = call(t, h, http.MethodGet, "/api/v1/wallet/balance", renewed.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_OfferLifecycle(t *testing.T) {
	h := newTestRouter(t)
	client := register(t, h, "Alice", "alice@example.com", "client")
	railway := register(t, h, "Rail & Go", "rail@example.com", "agency")
	skyline := register(t, h, "Skyline", "sky@example.com", "agency")

	rec := call(t, h, http.MethodPost, "/api/v1/requests", railway.Token, map[string]string{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/requests", client.Token, map[string]interface{}{
		"departure_city":   "Paris",
		"destination_city": "Lyon",
		"departure_date":   "2025-06-01T08:00:00Z",
		"transport_type":   "rail",
		"preferences":      map[string]interface{}{"travel_class": "economy"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	travelReq := decode[models.TravelRequest](t, rec)
	assert.Equal(t, client.User.ID, travelReq.ClientID)

	rec = call(t, h, http.MethodGet, "/api/v1/notifications/unread-count", railway.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count":1}`, rec.Body.String())

	offerPath := "/api/v1/requests/" + travelReq.ID + "/offers"
	rec = call(t, h, http.MethodPost, offerPath, railway.Token, map[string]interface{}{"price": "89.90", "description": "TGV"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	winner := decode[models.TravelOffer](t, rec)

	rec = call(t, h, http.MethodPost, offerPath, skyline.Token, map[string]interface{}{"price": "120", "description": "First class"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loser := decode[models.TravelOffer](t, rec)

	rec = call(t, h, http.MethodGet, offerPath, skyline.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TravelOffer](t, rec), 1)

	rec = call(t, h, http.MethodGet, offerPath, client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TravelOffer](t, rec), 2)

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+winner.ID+"/accept", railway.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+winner.ID+"/ticket", railway.Token, map[string]string{"ticket_url": "https://t.example.com/1.pdf"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+winner.ID+"/accept", client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[models.AcceptOfferResult](t, rec)
	assert.Equal(t, []string{loser.ID}, result.RejectedIDs)
	require.NotNil(t, result.Offer.PaymentReference)

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+loser.ID+"/accept", client.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode[map[string]interface{}](t, rec)["error"])

	rec = call(t, h, http.MethodGet, "/api/v1/offers/"+winner.ID+"/payment-qr", client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = call(t, h, http.MethodGet, "/api/v1/wallet/balance", client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[models.Balance](t, rec)
	assert.Equal(t, "-89.9", balance.Amount.String())

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+winner.ID+"/ticket", skyline.Token, map[string]string{"ticket_url": "https://t.example.com/1.pdf"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/offers/"+winner.ID+"/ticket", railway.Token, map[string]string{"ticket_url": "https://t.example.com/1.pdf"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/v1/requests/"+travelReq.ID, client.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RequestStatusCompleted, decode[models.TravelRequest](t, rec).Status)

	rec = call(t, h, http.MethodGet, "/api/v1/requests/missing", client.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Messaging(t *testing.T) {
	h := newTestRouter(t)
	alice := register(t, h, "Alice", "alice@example.com", "client")
	agency := register(t, h, "Rail & Go", "rail@example.com", "agency")
	mallory := register(t, h, "Mallory", "mallory@example.com", "client")

	rec := call(t, h, http.MethodPost, "/api/v1/conversations", alice.Token, map[string]string{"participant_id": agency.User.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conv := decode[models.Conversation](t, rec)

	rec = call(t, h, http.MethodPost, "/api/v1/conversations", alice.Token, map[string]string{"participant_id": alice.User.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	msgPath := "/api/v1/conversations/" + conv.ID + "/messages"
	rec = call(t, h, http.MethodPost, msgPath, alice.Token, map[string]string{"content": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, agency.User.ID, decode[models.Message](t, rec).RecipientID)

	rec = call(t, h, http.MethodGet, msgPath, mallory.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/read", agency.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = call(t, h, http.MethodGet, msgPath, agency.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]models.Message](t, rec)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageStatusRead, msgs[0].Status)
}

func TestRouter_Wallet(t *testing.T) {
	h := newTestRouter(t)
	alice := register(t, h, "Alice", "alice@example.com", "client")

	rec := call(t, h, http.MethodPost, "/api/v1/wallet/deposit", alice.Token, map[string]string{"amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/api/v1/wallet/withdraw", alice.Token, map[string]string{"amount": "500"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/v1/wallet/balance/at-time?timestamp=yesterday", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/v1/wallet/transactions?limit=10", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Len(t, body["transactions"], 1)

	rec = call(t, h, http.MethodGet, "/api/v1/wallet/reconcile", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, rec)["consistent"])
}
