package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"travel-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

const notificationColumns = `id, user_id, title, message, type, is_read, related_request_id, related_offer_id, created_at`

type mysqlNotifications struct{ q querier }

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var relReq, relOffer sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &relReq, &relOffer, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.RelatedRequestID = stringPtr(relReq)
	n.RelatedOfferID = stringPtr(relOffer)
	return &n, nil
}

func (r mysqlNotifications) Get(ctx context.Context, id string) (*models.Notification, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	n, err := scanNotification(row)
	return n, notFoundOr(err)
}

func (r mysqlNotifications) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r mysqlNotifications) Insert(ctx context.Context, n *models.Notification) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO notifications ("+notificationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead,
		nullableString(n.RelatedRequestID), nullableString(n.RelatedOfferID), n.CreatedAt,
	)
	return err
}

func (r mysqlNotifications) Update(ctx context.Context, n *models.Notification) error {
	res, err := r.q.ExecContext(ctx, "UPDATE notifications SET is_read = ? WHERE id = ?", n.IsRead, n.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r mysqlNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, user_id, type, amount, currency, description, related_offer_id, created_at`

type mysqlTransactions struct{ q querier }

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var relOffer sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Description, &relOffer, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.RelatedOfferID = stringPtr(relOffer)
	return &t, nil
}

func (r mysqlTransactions) Get(ctx context.Context, id string) (*models.Transaction, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	return t, notFoundOr(err)
}

func (r mysqlTransactions) collect(rows *sql.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r mysqlTransactions) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ? ORDER BY created_at DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r mysqlTransactions) ListByRelatedOffer(ctx context.Context, offerID string) ([]*models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE related_offer_id = ? ORDER BY created_at", offerID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r mysqlTransactions) Insert(ctx context.Context, t *models.Transaction) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.UserID, string(t.Type), t.Amount, t.Currency, t.Description, nullableString(t.RelatedOfferID), t.CreatedAt,
	)
	return err
}

const userColumns = `id, name, email, password_hash, role, wallet_balance, agency_profile, created_at, updated_at`

type mysqlUsers struct{ q querier }

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var profile []byte
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.WalletBalance, &profile, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		var p models.AgencyProfile
		if err := json.Unmarshal(profile, &p); err != nil {
			return nil, fmt.Errorf("error decoding agency profile: %w", err)
		}
		u.AgencyProfile = &p
	}
	return &u, nil
}

func (r mysqlUsers) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	return u, notFoundOr(err)
}

func (r mysqlUsers) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", id)
	u, err := scanUser(row)
	return u, notFoundOr(err)
}

func (r mysqlUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	return u, notFoundOr(err)
}

func (r mysqlUsers) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE role = ? ORDER BY created_at", string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r mysqlUsers) Insert(ctx context.Context, u *models.User) error {
	var profile any
	if u.AgencyProfile != nil {
		b, err := json.Marshal(u.AgencyProfile)
		if err != nil {
			return fmt.Errorf("error encoding agency profile: %w", err)
		}
		profile = b
	}
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.WalletBalance, profile, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r mysqlUsers) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET wallet_balance = wallet_balance + ?, updated_at = ? WHERE id = ?",
		delta, time.Now(), userID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	if err := r.q.QueryRowContext(ctx, "SELECT wallet_balance FROM users WHERE id = ?", userID).Scan(&balance); err != nil {
		return decimal.Zero, notFoundOr(err)
	}
	return balance, nil
}

const conversationColumns = `id, participant_a, participant_b, last_message_id, last_message_content,
	last_message_time, unread_count, created_at, updated_at`

type mysqlConversations struct{ q querier }

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	var a, b string
	var lastID sql.NullString
	var lastTime sql.NullTime
	err := row.Scan(&c.ID, &a, &b, &lastID, &c.LastMessageContent, &lastTime, &c.UnreadCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ParticipantIDs = []string{a, b}
	c.LastMessageID = stringPtr(lastID)
	c.LastMessageTime = timePtr(lastTime)
	return &c, nil
}

func (r mysqlConversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id)
	c, err := scanConversation(row)
	return c, notFoundOr(err)
}

func (r mysqlConversations) FindByParticipants(ctx context.Context, a, b string) (*models.Conversation, error) {
	first, second := orderedPair(a, b)
	row := r.q.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE participant_a = ? AND participant_b = ?", first, second)
	c, err := scanConversation(row)
	return c, notFoundOr(err)
}

func (r mysqlConversations) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE participant_a = ? OR participant_b = ? ORDER BY updated_at DESC",
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r mysqlConversations) Insert(ctx context.Context, c *models.Conversation) error {
	if len(c.ParticipantIDs) != 2 {
		return fmt.Errorf("conversation %s must have exactly 2 participants", c.ID)
	}
	first, second := orderedPair(c.ParticipantIDs[0], c.ParticipantIDs[1])
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO conversations ("+conversationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, first, second, nullableString(c.LastMessageID), c.LastMessageContent,
		nullableTime(c.LastMessageTime), c.UnreadCount, c.CreatedAt, c.UpdatedAt,
	)
	return duplicateOr(err)
}

func (r mysqlConversations) Update(ctx context.Context, c *models.Conversation) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE conversations SET last_message_id = ?, last_message_content = ?, last_message_time = ?,
		unread_count = ?, updated_at = ? WHERE id = ?`,
		nullableString(c.LastMessageID), c.LastMessageContent, nullableTime(c.LastMessageTime),
		c.UnreadCount, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const messageColumns = `id, conversation_id, sender_id, recipient_id, content, attachment_url, status, created_at, read_at`

type mysqlMessages struct{ q querier }

func (r mysqlMessages) ListByConversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? ORDER BY created_at", conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var m models.Message
		var attachment sql.NullString
		var readAt sql.NullTime
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.Content,
			&attachment, &m.Status, &m.CreatedAt, &readAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		m.AttachmentURL = stringPtr(attachment)
		m.ReadAt = timePtr(readAt)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r mysqlMessages) Insert(ctx context.Context, m *models.Message) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.ConversationID, m.SenderID, m.RecipientID, m.Content,
		nullableString(m.AttachmentURL), string(m.Status), m.CreatedAt, nullableTime(m.ReadAt),
	)
	return err
}

func (r mysqlMessages) MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE messages SET status = ?, read_at = ? WHERE conversation_id = ? AND recipient_id = ? AND status <> ?",
		string(models.MessageStatusRead), at, conversationID, recipientID, string(models.MessageStatusRead),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
