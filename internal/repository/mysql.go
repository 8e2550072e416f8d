package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"travel-marketplace/internal/models"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// MySQLStore implements Store on top of database/sql with the MySQL driver.
// The DSN must carry parseTime=true.
type MySQLStore struct {
	db *sql.DB
	mysqlRepos
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, mysqlRepos: mysqlRepos{q: db}}
}

func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(mysqlRepos{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type mysqlRepos struct {
	q querier
}

func (r mysqlRepos) Requests() RequestRepository           { return mysqlRequests{r.q} }
func (r mysqlRepos) Offers() OfferRepository               { return mysqlOffers{r.q} }
func (r mysqlRepos) Notifications() NotificationRepository { return mysqlNotifications{r.q} }
func (r mysqlRepos) Transactions() TransactionRepository   { return mysqlTransactions{r.q} }
func (r mysqlRepos) Users() UserRepository                 { return mysqlUsers{r.q} }
func (r mysqlRepos) Conversations() ConversationRepository { return mysqlConversations{r.q} }
func (r mysqlRepos) Messages() MessageRepository           { return mysqlMessages{r.q} }

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// duplicateOr maps a unique key violation to ErrDuplicate.
func duplicateOr(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

const requestColumns = `id, client_id, departure_city, destination_city, departure_date, return_date,
	transport_type, preferences, additional_notes, status, created_at`

type mysqlRequests struct{ q querier }

func scanRequest(row rowScanner) (*models.TravelRequest, error) {
	var req models.TravelRequest
	var returnDate sql.NullTime
	var prefs []byte

	err := row.Scan(
		&req.ID, &req.ClientID, &req.DepartureCity, &req.DestinationCity, &req.DepartureDate, &returnDate,
		&req.TransportType, &prefs, &req.AdditionalNotes, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.ReturnDate = timePtr(returnDate)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &req.Preferences); err != nil {
			return nil, fmt.Errorf("error decoding preferences: %w", err)
		}
	}
	return &req, nil
}

func (r mysqlRequests) Get(ctx context.Context, id string) (*models.TravelRequest, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM travel_requests WHERE id = ?", id)
	req, err := scanRequest(row)
	return req, notFoundOr(err)
}

func (r mysqlRequests) GetForUpdate(ctx context.Context, id string) (*models.TravelRequest, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM travel_requests WHERE id = ? FOR UPDATE", id)
	req, err := scanRequest(row)
	return req, notFoundOr(err)
}

func (r mysqlRequests) list(ctx context.Context, where string, args ...any) ([]*models.TravelRequest, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+requestColumns+" FROM travel_requests WHERE "+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TravelRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning travel request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r mysqlRequests) ListByClient(ctx context.Context, clientID string) ([]*models.TravelRequest, error) {
	return r.list(ctx, "client_id = ?", clientID)
}

func (r mysqlRequests) ListByStatus(ctx context.Context, statuses ...models.RequestStatus) ([]*models.TravelRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return r.list(ctx, "status IN ("+placeholders(len(statuses))+")", args...)
}

func (r mysqlRequests) Insert(ctx context.Context, req *models.TravelRequest) error {
	prefs, err := json.Marshal(req.Preferences)
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO travel_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.ClientID, req.DepartureCity, req.DestinationCity, req.DepartureDate, nullableTime(req.ReturnDate),
		string(req.TransportType), prefs, req.AdditionalNotes, string(req.Status), req.CreatedAt,
	)
	return err
}

// Update only persists the status; every other request field is immutable
// after creation.
func (r mysqlRequests) Update(ctx context.Context, req *models.TravelRequest) error {
	res, err := r.q.ExecContext(ctx, "UPDATE travel_requests SET status = ? WHERE id = ?", string(req.Status), req.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const offerColumns = `id, request_id, agency_id, agency_name, price, currency, description, departure_time,
	return_time, preferences_match, status, ticket_url, payment_reference, created_at`

type mysqlOffers struct{ q querier }

func scanOffer(row rowScanner) (*models.TravelOffer, error) {
	var offer models.TravelOffer
	var departure, ret sql.NullTime
	var ticketURL, paymentRef sql.NullString
	var match []byte

	err := row.Scan(
		&offer.ID, &offer.RequestID, &offer.AgencyID, &offer.AgencyName, &offer.Price, &offer.Currency,
		&offer.Description, &departure, &ret, &match, &offer.Status, &ticketURL, &paymentRef, &offer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	offer.DepartureTime = timePtr(departure)
	offer.ReturnTime = timePtr(ret)
	offer.TicketURL = stringPtr(ticketURL)
	offer.PaymentReference = stringPtr(paymentRef)
	if len(match) > 0 {
		var pm models.PreferencesMatch
		if err := json.Unmarshal(match, &pm); err != nil {
			return nil, fmt.Errorf("error decoding preferences match: %w", err)
		}
		offer.PreferencesMatch = &pm
	}
	return &offer, nil
}

func (r mysqlOffers) Get(ctx context.Context, id string) (*models.TravelOffer, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+offerColumns+" FROM travel_offers WHERE id = ?", id)
	offer, err := scanOffer(row)
	return offer, notFoundOr(err)
}

func (r mysqlOffers) list(ctx context.Context, where string, arg any) ([]*models.TravelOffer, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+offerColumns+" FROM travel_offers WHERE "+where+" ORDER BY created_at DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TravelOffer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning offer: %w", err)
		}
		out = append(out, offer)
	}
	return out, rows.Err()
}

func (r mysqlOffers) ListByRequest(ctx context.Context, requestID string) ([]*models.TravelOffer, error) {
	return r.list(ctx, "request_id = ?", requestID)
}

func (r mysqlOffers) ListByAgency(ctx context.Context, agencyID string) ([]*models.TravelOffer, error) {
	return r.list(ctx, "agency_id = ?", agencyID)
}

func encodeMatch(pm *models.PreferencesMatch) (any, error) {
	if pm == nil {
		return nil, nil
	}
	b, err := json.Marshal(pm)
	if err != nil {
		return nil, fmt.Errorf("error encoding preferences match: %w", err)
	}
	return b, nil
}

func (r mysqlOffers) Insert(ctx context.Context, offer *models.TravelOffer) error {
	match, err := encodeMatch(offer.PreferencesMatch)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO travel_offers (`+offerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offer.ID, offer.RequestID, offer.AgencyID, offer.AgencyName, offer.Price, offer.Currency, offer.Description,
		nullableTime(offer.DepartureTime), nullableTime(offer.ReturnTime), match, string(offer.Status),
		nullableString(offer.TicketURL), nullableString(offer.PaymentReference), offer.CreatedAt,
	)
	return err
}

func (r mysqlOffers) Update(ctx context.Context, offer *models.TravelOffer) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE travel_offers SET status = ?, ticket_url = ?, payment_reference = ? WHERE id = ?",
		string(offer.Status), nullableString(offer.TicketURL), nullableString(offer.PaymentReference), offer.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
