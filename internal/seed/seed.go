// Package seed fills an empty store with a small demo marketplace.
package seed

import (
	"context"
	"fmt"
	"time"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"
	"travel-marketplace/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const DemoPassword = "password123"

type Deps struct {
	Store     repository.Store
	Users     *services.UserService
	Ledger    *services.LedgerService
	Wallet    *services.WalletService
	Messaging *services.MessagingService
}

// Run seeds demo data unless the admin account already exists.
func Run(ctx context.Context, d Deps, logger zerolog.Logger) error {
	if _, err := d.Store.Users().GetByEmail(ctx, "admin@example.com"); err == nil {
		logger.Info().Msg("Demo data already present, skipping seed")
		return nil
	}

	if err := insertAdmin(ctx, d.Store); err != nil {
		return err
	}

	register := func(name, email string, role models.UserRole, profile *models.AgencyProfile) (*models.User, error) {
		u, err := d.Users.Register(ctx, &models.RegisterRequest{
			Name:          name,
			Email:         email,
			Password:      DemoPassword,
			Role:          string(role),
			AgencyProfile: profile,
		})
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", email, err)
		}
		return u, nil
	}

	alice, err := register("Alice Martin", "alice@example.com", models.RoleClient, nil)
	if err != nil {
		return err
	}
	bob, err := register("Bob Keller", "bob@example.com", models.RoleClient, nil)
	if err != nil {
		return err
	}
	railway, err := register("Rail & Go", "contact@railandgo.example.com", models.RoleAgency, &models.AgencyProfile{
		Address:      "12 Rue de Lyon, Paris",
		CitiesServed: []string{"Paris", "Lyon", "Marseille"},
		Specialty:    "Rail journeys",
		Markets:      []string{"FR"},
	})
	if err != nil {
		return err
	}
	skyline, err := register("Skyline Travel", "hello@skyline.example.com", models.RoleAgency, &models.AgencyProfile{
		Address:      "Friedrichstrasse 50, Berlin",
		CitiesServed: []string{"Berlin", "Paris", "Rome"},
		Specialty:    "Business flights",
		Markets:      []string{"DE", "FR", "IT"},
	})
	if err != nil {
		return err
	}
	if _, err := register("Nordic Trails", "info@nordictrails.example.com", models.RoleAgency, &models.AgencyProfile{
		CitiesServed: []string{"Oslo", "Stockholm"},
		Specialty:    "Scandinavia",
	}); err != nil {
		return err
	}

	if _, err := d.Wallet.Deposit(ctx, &models.WalletMovementRequest{
		UserID: alice.ID,
		Amount: decimal.NewFromInt(500),
	}); err != nil {
		return fmt.Errorf("seed deposit: %w", err)
	}

	departure := time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour)
	returning := departure.AddDate(0, 0, 5)

	if _, err := d.Ledger.CreateRequest(ctx, &models.CreateTravelRequest{
		ClientID:        bob.ID,
		DepartureCity:   "Berlin",
		DestinationCity: "Rome",
		DepartureDate:   departure,
		TransportType:   models.TransportFlight,
		Preferences: models.TravelPreferences{
			TravelClass: models.ClassBusiness,
			Priority:    models.PriorityComfort,
			DirectOnly:  true,
		},
	}); err != nil {
		return fmt.Errorf("seed request: %w", err)
	}

	parisLyon, err := d.Ledger.CreateRequest(ctx, &models.CreateTravelRequest{
		ClientID:        alice.ID,
		DepartureCity:   "Paris",
		DestinationCity: "Lyon",
		DepartureDate:   departure,
		ReturnDate:      &returning,
		TransportType:   models.TransportRail,
		Preferences: models.TravelPreferences{
			TravelClass:  models.ClassEconomy,
			Priority:     models.PriorityPrice,
			MealIncluded: true,
		},
		AdditionalNotes: "Window seat if possible",
	})
	if err != nil {
		return fmt.Errorf("seed request: %w", err)
	}

	for _, o := range []struct {
		agency *models.User
		price  string
		desc   string
	}{
		{railway, "89.90", "TGV second class, flexible ticket, meal voucher included"},
		{skyline, "129.00", "First class rail with lounge access"},
	} {
		if _, err := d.Ledger.CreateOffer(ctx, &models.CreateOfferRequest{
			RequestID:   parisLyon.ID,
			AgencyID:    o.agency.ID,
			Price:       decimal.RequireFromString(o.price),
			Description: o.desc,
			PreferencesMatch: &models.PreferencesMatch{
				TravelClass:  true,
				MealIncluded: true,
			},
		}); err != nil {
			return fmt.Errorf("seed offer: %w", err)
		}
	}

	conv, err := d.Messaging.StartConversation(ctx, alice.ID, railway.ID)
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	if _, err := d.Messaging.SendMessage(ctx, &models.SendMessageRequest{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		RecipientID:    railway.ID,
		Content:        "Hello, is the return trip refundable?",
	}); err != nil {
		return fmt.Errorf("seed message: %w", err)
	}

	logger.Info().Msg("Demo data seeded")
	return nil
}

func insertAdmin(ctx context.Context, store repository.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return store.Users().Insert(ctx, &models.User{
		ID:            uuid.NewString(),
		Name:          "Marketplace Admin",
		Email:         "admin@example.com",
		PasswordHash:  string(hash),
		Role:          string(models.RoleAdmin),
		WalletBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}
