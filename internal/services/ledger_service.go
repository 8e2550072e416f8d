package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

// LedgerService runs the travel request and offer lifecycle:
//
//	request: pending -> offers_received -> accepted -> completed
//	offer:   pending -> accepted -> completed, or pending -> rejected
//
// Every transition and the notifications describing it are written in one
// unit of work; notifications are delivered only after it commits.
type LedgerService struct {
	store           repository.Store
	wallet          *WalletService
	notifications   *NotificationService
	validator       *ValidationHelper
	logger          zerolog.Logger
	defaultCurrency string
	now             func() time.Time
	newReference    func() (string, error)
	locks           stripedLock
}

func NewLedgerService(
	store repository.Store,
	wallet *WalletService,
	notifications *NotificationService,
	logger zerolog.Logger,
	defaultCurrency string,
) *LedgerService {
	return &LedgerService{
		store:           store,
		wallet:          wallet,
		notifications:   notifications,
		validator:       NewValidationHelper(),
		logger:          logger,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		now:             utcNow,
		newReference:    NewPaymentReference,
	}
}

// requestLock serializes offer writes per travel request inside this process.
// The MySQL store additionally row-locks the request for multi-instance setups.
func (s *LedgerService) requestLock(requestID string) *sync.Mutex {
	return s.locks.forKey(requestID)
}

func (s *LedgerService) CreateRequest(ctx context.Context, req *models.CreateTravelRequest) (*models.TravelRequest, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.ReturnDate != nil && req.ReturnDate.Before(req.DepartureDate) {
		return nil, apperrors.Validation("return date must not be before departure date")
	}

	client, err := s.store.Users().Get(ctx, req.ClientID)
	if err != nil {
		return nil, notFound(err, "user", req.ClientID)
	}
	if client.Role != string(models.RoleClient) {
		return nil, apperrors.Forbidden("only clients can create travel requests")
	}

	travelReq := &models.TravelRequest{
		ID:              newID(),
		ClientID:        req.ClientID,
		DepartureCity:   strings.TrimSpace(req.DepartureCity),
		DestinationCity: strings.TrimSpace(req.DestinationCity),
		DepartureDate:   req.DepartureDate,
		ReturnDate:      req.ReturnDate,
		TransportType:   req.TransportType,
		Preferences:     req.Preferences,
		AdditionalNotes: req.AdditionalNotes,
		Status:          models.RequestStatusPending,
		CreatedAt:       s.now(),
	}

	var pending []*models.Notification
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Requests().Insert(ctx, travelReq); err != nil {
			return err
		}

		agencies, err := eligibleAgencies(ctx, tx, travelReq.DepartureCity, travelReq.DestinationCity)
		if err != nil {
			return err
		}
		for _, agency := range agencies {
			n, err := s.notifications.notifyInTx(ctx, tx, models.NotificationInput{
				UserID:           agency.ID,
				Title:            "New travel request",
				Message:          fmt.Sprintf("New %s request from %s to %s on %s", travelReq.TransportType, travelReq.DepartureCity, travelReq.DestinationCity, travelReq.DepartureDate.Format("2006-01-02")),
				Type:             models.NotificationInfo,
				RelatedRequestID: &travelReq.ID,
			})
			if err != nil {
				return err
			}
			pending = append(pending, n)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("client_id", req.ClientID).Msg("Error creating travel request")
		return nil, err
	}

	s.notifications.deliver(ctx, pending...)

	s.logger.Info().
		Str("request_id", travelReq.ID).
		Str("client_id", travelReq.ClientID).
		Int("agencies_notified", len(pending)).
		Msg("Travel request created")

	return travelReq, nil
}

func (s *LedgerService) CreateOffer(ctx context.Context, req *models.CreateOfferRequest) (*models.TravelOffer, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if !req.Price.IsPositive() {
		return nil, apperrors.Validation("price must be greater than zero")
	}
	if !isCents(req.Price) {
		return nil, apperrors.Validation("price must have at most two decimal places")
	}

	agency, err := s.store.Users().Get(ctx, req.AgencyID)
	if err != nil {
		return nil, notFound(err, "user", req.AgencyID)
	}
	if agency.Role != string(models.RoleAgency) {
		return nil, apperrors.Forbidden("only agencies can submit offers")
	}

	agencyName := req.AgencyName
	if agencyName == "" {
		agencyName = agency.Name
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	mu := s.requestLock(req.RequestID)
	mu.Lock()
	defer mu.Unlock()

	var (
		offer   *models.TravelOffer
		pending *models.Notification
	)
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		travelReq, err := tx.Requests().GetForUpdate(ctx, req.RequestID)
		if err != nil {
			return notFound(err, "travel request", req.RequestID)
		}
		if !travelReq.Status.AcceptsOffers() {
			return apperrors.InvalidState("travel request %s is %s and no longer accepts offers", travelReq.ID, travelReq.Status)
		}

		offer = &models.TravelOffer{
			ID:               newID(),
			RequestID:        travelReq.ID,
			AgencyID:         agency.ID,
			AgencyName:       agencyName,
			Price:            req.Price,
			Currency:         currency,
			Description:      req.Description,
			DepartureTime:    req.DepartureTime,
			ReturnTime:       req.ReturnTime,
			PreferencesMatch: req.PreferencesMatch,
			Status:           models.OfferStatusPending,
			CreatedAt:        s.now(),
		}
		if err := tx.Offers().Insert(ctx, offer); err != nil {
			return err
		}

		if travelReq.Status == models.RequestStatusPending {
			travelReq.Status = models.RequestStatusOffersReceived
			if err := tx.Requests().Update(ctx, travelReq); err != nil {
				return err
			}
		}

		pending, err = s.notifications.notifyInTx(ctx, tx, models.NotificationInput{
			UserID:           travelReq.ClientID,
			Title:            "New offer received",
			Message:          fmt.Sprintf("%s offered %s %s for your trip from %s to %s", agencyName, offer.Price.StringFixed(2), offer.Currency, travelReq.DepartureCity, travelReq.DestinationCity),
			Type:             models.NotificationInfo,
			RelatedRequestID: &travelReq.ID,
			RelatedOfferID:   &offer.ID,
		})
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", req.RequestID).Str("agency_id", req.AgencyID).Msg("Error creating offer")
		return nil, err
	}

	s.notifications.deliver(ctx, pending)

	s.logger.Info().
		Str("offer_id", offer.ID).
		Str("request_id", offer.RequestID).
		Str("agency_id", offer.AgencyID).
		Str("price", offer.Price.String()).
		Msg("Offer created")

	return offer, nil
}

// AcceptOffer settles a travel request with one offer. In a single unit of
// work it issues the payment reference, records the client's payment, rejects
// every sibling offer and marks the request accepted.
func (s *LedgerService) AcceptOffer(ctx context.Context, offerID string) (*models.AcceptOfferResult, error) {
	located, err := s.store.Offers().Get(ctx, offerID)
	if err != nil {
		return nil, notFound(err, "offer", offerID)
	}

	mu := s.requestLock(located.RequestID)
	mu.Lock()
	defer mu.Unlock()

	result := &models.AcceptOfferResult{}
	var pending []*models.Notification

	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		travelReq, err := tx.Requests().GetForUpdate(ctx, located.RequestID)
		if err != nil {
			return notFound(err, "travel request", located.RequestID)
		}
		offer, err := tx.Offers().Get(ctx, offerID)
		if err != nil {
			return notFound(err, "offer", offerID)
		}
		siblings, err := tx.Offers().ListByRequest(ctx, travelReq.ID)
		if err != nil {
			return err
		}

		for _, o := range siblings {
			if o.Status.HoldsRequest() {
				return apperrors.Conflict("travel request %s already has an accepted offer", travelReq.ID)
			}
		}
		if offer.Status != models.OfferStatusPending {
			return apperrors.InvalidState("offer %s is %s and cannot be accepted", offer.ID, offer.Status)
		}
		if !travelReq.Status.CanTransitionTo(models.RequestStatusAccepted) {
			return apperrors.InvalidState("travel request %s is %s and cannot be accepted", travelReq.ID, travelReq.Status)
		}

		reference, err := s.newReference()
		if err != nil {
			return err
		}

		offer.Status = models.OfferStatusAccepted
		offer.PaymentReference = &reference
		if err := tx.Offers().Update(ctx, offer); err != nil {
			return err
		}

		payment, _, err := s.wallet.recordInTx(ctx, tx, &models.RecordTransactionRequest{
			UserID:         travelReq.ClientID,
			Type:           models.TransactionTypePayment,
			Amount:         offer.Price,
			Currency:       offer.Currency,
			Description:    fmt.Sprintf("Payment to %s for %s to %s (ref %s)", offer.AgencyName, travelReq.DepartureCity, travelReq.DestinationCity, reference),
			RelatedOfferID: &offer.ID,
		})
		if err != nil {
			return err
		}

		rejected := []string{}
		for _, o := range siblings {
			if o.ID == offer.ID || o.Status == models.OfferStatusAccepted || o.Status == models.OfferStatusRejected {
				continue
			}
			o.Status = models.OfferStatusRejected
			if err := tx.Offers().Update(ctx, o); err != nil {
				return err
			}
			rejected = append(rejected, o.ID)
		}

		travelReq.Status = models.RequestStatusAccepted
		if err := tx.Requests().Update(ctx, travelReq); err != nil {
			return err
		}

		clientNote, err := s.notifications.notifyInTx(ctx, tx, models.NotificationInput{
			UserID:           travelReq.ClientID,
			Title:            "Offer accepted",
			Message:          fmt.Sprintf("You accepted the offer from %s. Transfer %s %s quoting payment reference %s.", offer.AgencyName, offer.Price.StringFixed(2), offer.Currency, reference),
			Type:             models.NotificationSuccess,
			RelatedRequestID: &travelReq.ID,
			RelatedOfferID:   &offer.ID,
		})
		if err != nil {
			return err
		}
		agencyNote, err := s.notifications.notifyInTx(ctx, tx, models.NotificationInput{
			UserID:           offer.AgencyID,
			Title:            "Your offer was accepted",
			Message:          fmt.Sprintf("Your offer for %s to %s was accepted. Awaiting payment confirmation for reference %s.", travelReq.DepartureCity, travelReq.DestinationCity, reference),
			Type:             models.NotificationSuccess,
			RelatedRequestID: &travelReq.ID,
			RelatedOfferID:   &offer.ID,
		})
		if err != nil {
			return err
		}
		pending = append(pending, clientNote, agencyNote)

		result.Offer = offer
		result.Request = travelReq
		result.Transaction = payment
		result.RejectedIDs = rejected
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("offer_id", offerID).Msg("Offer acceptance failed")
		return nil, err
	}

	s.notifications.deliver(ctx, pending...)

	s.logger.Info().
		Str("offer_id", result.Offer.ID).
		Str("request_id", result.Request.ID).
		Str("payment_reference", *result.Offer.PaymentReference).
		Str("transaction_id", result.Transaction.ID).
		Int("rejected_offers", len(result.RejectedIDs)).
		Msg("Offer accepted")

	return result, nil
}

// UploadTicket completes an accepted offer and its request. It is rejected
// without side effects for offers in any other status.
func (s *LedgerService) UploadTicket(ctx context.Context, offerID, ticketRef string) (*models.TravelOffer, error) {
	ticketRef = strings.TrimSpace(ticketRef)
	if ticketRef == "" {
		return nil, apperrors.Validation("ticket reference is required")
	}

	located, err := s.store.Offers().Get(ctx, offerID)
	if err != nil {
		return nil, notFound(err, "offer", offerID)
	}

	mu := s.requestLock(located.RequestID)
	mu.Lock()
	defer mu.Unlock()

	var (
		offer   *models.TravelOffer
		pending *models.Notification
	)
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		travelReq, err := tx.Requests().GetForUpdate(ctx, located.RequestID)
		if err != nil {
			return notFound(err, "travel request", located.RequestID)
		}
		offer, err = tx.Offers().Get(ctx, offerID)
		if err != nil {
			return notFound(err, "offer", offerID)
		}
		if offer.Status != models.OfferStatusAccepted {
			return apperrors.InvalidState("offer %s is %s; tickets can only be uploaded for accepted offers", offer.ID, offer.Status)
		}
		if !travelReq.Status.CanTransitionTo(models.RequestStatusCompleted) {
			return apperrors.InvalidState("travel request %s is %s and cannot be completed", travelReq.ID, travelReq.Status)
		}

		offer.Status = models.OfferStatusCompleted
		offer.TicketURL = &ticketRef
		if err := tx.Offers().Update(ctx, offer); err != nil {
			return err
		}

		travelReq.Status = models.RequestStatusCompleted
		if err := tx.Requests().Update(ctx, travelReq); err != nil {
			return err
		}

		pending, err = s.notifications.notifyInTx(ctx, tx, models.NotificationInput{
			UserID:           travelReq.ClientID,
			Title:            "Your ticket is ready",
			Message:          fmt.Sprintf("%s uploaded your ticket for %s to %s.", offer.AgencyName, travelReq.DepartureCity, travelReq.DestinationCity),
			Type:             models.NotificationSuccess,
			RelatedRequestID: &travelReq.ID,
		})
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("offer_id", offerID).Msg("Ticket upload failed")
		return nil, err
	}

	s.notifications.deliver(ctx, pending)

	s.logger.Info().Str("offer_id", offer.ID).Str("request_id", offer.RequestID).Msg("Ticket uploaded")
	return offer, nil
}

func (s *LedgerService) GetRequest(ctx context.Context, requestID string) (*models.TravelRequest, error) {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "travel request", requestID)
	}
	return req, nil
}

func (s *LedgerService) ListRequestsByClient(ctx context.Context, clientID string) ([]*models.TravelRequest, error) {
	return s.store.Requests().ListByClient(ctx, clientID)
}

// ListOpenRequests returns the requests agencies can still bid on.
func (s *LedgerService) ListOpenRequests(ctx context.Context) ([]*models.TravelRequest, error) {
	return s.store.Requests().ListByStatus(ctx, models.RequestStatusPending, models.RequestStatusOffersReceived)
}

func (s *LedgerService) GetOffer(ctx context.Context, offerID string) (*models.TravelOffer, error) {
	offer, err := s.store.Offers().Get(ctx, offerID)
	if err != nil {
		return nil, notFound(err, "offer", offerID)
	}
	return offer, nil
}

func (s *LedgerService) ListOffersByRequest(ctx context.Context, requestID string) ([]*models.TravelOffer, error) {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return s.store.Offers().ListByRequest(ctx, requestID)
}

func (s *LedgerService) ListOffersByAgency(ctx context.Context, agencyID string) ([]*models.TravelOffer, error) {
	return s.store.Offers().ListByAgency(ctx, agencyID)
}

// PaymentQR renders the bank transfer details of an accepted offer as a PNG
// QR code.
func (s *LedgerService) PaymentQR(ctx context.Context, offerID string, size int) ([]byte, error) {
	offer, err := s.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.PaymentReference == nil {
		return nil, apperrors.InvalidState("offer %s has no payment reference", offer.ID)
	}
	if size < 128 || size > 1024 {
		size = 256
	}

	content := fmt.Sprintf("REFERENCE:%s\nAMOUNT:%s\nCURRENCY:%s\nBENEFICIARY:%s",
		*offer.PaymentReference, offer.Price.StringFixed(2), offer.Currency, offer.AgencyName)

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render payment QR code: %w", err)
	}
	return png, nil
}
