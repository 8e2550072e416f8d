package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"travel-marketplace/internal/models"

	"github.com/shopspring/decimal"
)

type memoryState struct {
	requests      map[string]models.TravelRequest
	requestOrder  []string
	offers        map[string]models.TravelOffer
	offerOrder    []string
	notifications map[string]models.Notification
	notifOrder    []string
	transactions  map[string]models.Transaction
	txOrder       []string
	users         map[string]models.User
	userOrder     []string
	conversations map[string]models.Conversation
	convOrder     []string
	messages      map[string]models.Message
	messageOrder  []string
}

func newMemoryState() *memoryState {
	return &memoryState{
		requests:      make(map[string]models.TravelRequest),
		offers:        make(map[string]models.TravelOffer),
		notifications: make(map[string]models.Notification),
		transactions:  make(map[string]models.Transaction),
		users:         make(map[string]models.User),
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string]models.Message),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		requests:      cloneMap(s.requests),
		requestOrder:  append([]string(nil), s.requestOrder...),
		offers:        cloneMap(s.offers),
		offerOrder:    append([]string(nil), s.offerOrder...),
		notifications: cloneMap(s.notifications),
		notifOrder:    append([]string(nil), s.notifOrder...),
		transactions:  cloneMap(s.transactions),
		txOrder:       append([]string(nil), s.txOrder...),
		users:         cloneMap(s.users),
		userOrder:     append([]string(nil), s.userOrder...),
		conversations: cloneMap(s.conversations),
		convOrder:     append([]string(nil), s.convOrder...),
		messages:      cloneMap(s.messages),
		messageOrder:  append([]string(nil), s.messageOrder...),
	}
}

type runner func(fn func(st *memoryState) error) error

// MemoryStore keeps every entity in process memory. Transactions run against a
// copy of the state that replaces the live state only when fn succeeds, so a
// failed unit of work leaves nothing behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	memoryRepos
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: newMemoryState()}
	s.memoryRepos = memoryRepos{run: s.locked}
	return s
}

func (s *MemoryStore) locked(fn func(st *memoryState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	direct := func(f func(st *memoryState) error) error { return f(working) }
	if err := fn(memoryRepos{run: direct}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memoryRepos struct {
	run runner
}

func (r memoryRepos) Requests() RequestRepository           { return memRequests{r.run} }
func (r memoryRepos) Offers() OfferRepository               { return memOffers{r.run} }
func (r memoryRepos) Notifications() NotificationRepository { return memNotifications{r.run} }
func (r memoryRepos) Transactions() TransactionRepository   { return memTransactions{r.run} }
func (r memoryRepos) Users() UserRepository                 { return memUsers{r.run} }
func (r memoryRepos) Conversations() ConversationRepository { return memConversations{r.run} }
func (r memoryRepos) Messages() MessageRepository           { return memMessages{r.run} }

// newestFirst walks ids in reverse insertion order.
func newestFirst(order []string, visit func(id string)) {
	for i := len(order) - 1; i >= 0; i-- {
		visit(order[i])
	}
}

type memRequests struct{ run runner }

func (r memRequests) Get(ctx context.Context, id string) (*models.TravelRequest, error) {
	var out *models.TravelRequest
	err := r.run(func(st *memoryState) error {
		req, ok := st.requests[id]
		if !ok {
			return ErrNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

func (r memRequests) GetForUpdate(ctx context.Context, id string) (*models.TravelRequest, error) {
	return r.Get(ctx, id)
}

func (r memRequests) ListByClient(ctx context.Context, clientID string) ([]*models.TravelRequest, error) {
	var out []*models.TravelRequest
	err := r.run(func(st *memoryState) error {
		newestFirst(st.requestOrder, func(id string) {
			req := st.requests[id]
			if req.ClientID == clientID {
				out = append(out, &req)
			}
		})
		return nil
	})
	return out, err
}

func (r memRequests) ListByStatus(ctx context.Context, statuses ...models.RequestStatus) ([]*models.TravelRequest, error) {
	want := make(map[models.RequestStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []*models.TravelRequest
	err := r.run(func(st *memoryState) error {
		newestFirst(st.requestOrder, func(id string) {
			req := st.requests[id]
			if want[req.Status] {
				out = append(out, &req)
			}
		})
		return nil
	})
	return out, err
}

func (r memRequests) Insert(ctx context.Context, req *models.TravelRequest) error {
	return r.run(func(st *memoryState) error {
		st.requests[req.ID] = *req
		st.requestOrder = append(st.requestOrder, req.ID)
		return nil
	})
}

func (r memRequests) Update(ctx context.Context, req *models.TravelRequest) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.requests[req.ID]; !ok {
			return ErrNotFound
		}
		st.requests[req.ID] = *req
		return nil
	})
}

type memOffers struct{ run runner }

func (r memOffers) Get(ctx context.Context, id string) (*models.TravelOffer, error) {
	var out *models.TravelOffer
	err := r.run(func(st *memoryState) error {
		offer, ok := st.offers[id]
		if !ok {
			return ErrNotFound
		}
		out = &offer
		return nil
	})
	return out, err
}

func (r memOffers) ListByRequest(ctx context.Context, requestID string) ([]*models.TravelOffer, error) {
	return r.filter(func(o *models.TravelOffer) bool { return o.RequestID == requestID })
}

func (r memOffers) ListByAgency(ctx context.Context, agencyID string) ([]*models.TravelOffer, error) {
	return r.filter(func(o *models.TravelOffer) bool { return o.AgencyID == agencyID })
}

func (r memOffers) filter(keep func(o *models.TravelOffer) bool) ([]*models.TravelOffer, error) {
	var out []*models.TravelOffer
	err := r.run(func(st *memoryState) error {
		newestFirst(st.offerOrder, func(id string) {
			offer := st.offers[id]
			if keep(&offer) {
				out = append(out, &offer)
			}
		})
		return nil
	})
	return out, err
}

func (r memOffers) Insert(ctx context.Context, offer *models.TravelOffer) error {
	return r.run(func(st *memoryState) error {
		st.offers[offer.ID] = *offer
		st.offerOrder = append(st.offerOrder, offer.ID)
		return nil
	})
}

func (r memOffers) Update(ctx context.Context, offer *models.TravelOffer) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.offers[offer.ID]; !ok {
			return ErrNotFound
		}
		st.offers[offer.ID] = *offer
		return nil
	})
}

type memNotifications struct{ run runner }

func (r memNotifications) Get(ctx context.Context, id string) (*models.Notification, error) {
	var out *models.Notification
	err := r.run(func(st *memoryState) error {
		n, ok := st.notifications[id]
		if !ok {
			return ErrNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (r memNotifications) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.run(func(st *memoryState) error {
		for _, id := range st.notifOrder {
			n := st.notifications[id]
			if n.UserID == userID {
				out = append(out, &n)
			}
		}
		return nil
	})
	return out, err
}

func (r memNotifications) Insert(ctx context.Context, n *models.Notification) error {
	return r.run(func(st *memoryState) error {
		st.notifications[n.ID] = *n
		st.notifOrder = append(st.notifOrder, n.ID)
		return nil
	})
}

func (r memNotifications) Update(ctx context.Context, n *models.Notification) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.notifications[n.ID]; !ok {
			return ErrNotFound
		}
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r memNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var changed int64
	err := r.run(func(st *memoryState) error {
		for id, n := range st.notifications {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				st.notifications[id] = n
				changed++
			}
		}
		return nil
	})
	return changed, err
}

type memTransactions struct{ run runner }

func (r memTransactions) Get(ctx context.Context, id string) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.run(func(st *memoryState) error {
		t, ok := st.transactions[id]
		if !ok {
			return ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r memTransactions) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, error) {
	var all []*models.Transaction
	err := r.run(func(st *memoryState) error {
		newestFirst(st.txOrder, func(id string) {
			t := st.transactions[id]
			if t.UserID == userID {
				all = append(all, &t)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r memTransactions) ListByRelatedOffer(ctx context.Context, offerID string) ([]*models.Transaction, error) {
	var out []*models.Transaction
	err := r.run(func(st *memoryState) error {
		for _, id := range st.txOrder {
			t := st.transactions[id]
			if t.RelatedOfferID != nil && *t.RelatedOfferID == offerID {
				out = append(out, &t)
			}
		}
		return nil
	})
	return out, err
}

func (r memTransactions) Insert(ctx context.Context, t *models.Transaction) error {
	return r.run(func(st *memoryState) error {
		st.transactions[t.ID] = *t
		st.txOrder = append(st.txOrder, t.ID)
		return nil
	})
}

type memUsers struct{ run runner }

func (r memUsers) Get(ctx context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.run(func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.Get(ctx, id)
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.run(func(st *memoryState) error {
		for _, id := range st.userOrder {
			u := st.users[id]
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memUsers) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	var out []*models.User
	err := r.run(func(st *memoryState) error {
		for _, id := range st.userOrder {
			u := st.users[id]
			if u.Role == string(role) {
				out = append(out, &u)
			}
		}
		return nil
	})
	return out, err
}

func (r memUsers) Insert(ctx context.Context, u *models.User) error {
	return r.run(func(st *memoryState) error {
		st.users[u.ID] = *u
		st.userOrder = append(st.userOrder, u.ID)
		return nil
	})
}

func (r memUsers) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.run(func(st *memoryState) error {
		u, ok := st.users[userID]
		if !ok {
			return ErrNotFound
		}
		u.WalletBalance = u.WalletBalance.Add(delta)
		u.UpdatedAt = time.Now()
		st.users[userID] = u
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

type memConversations struct{ run runner }

func (r memConversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var out *models.Conversation
	err := r.run(func(st *memoryState) error {
		c, ok := st.conversations[id]
		if !ok {
			return ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r memConversations) FindByParticipants(ctx context.Context, a, b string) (*models.Conversation, error) {
	first, second := orderedPair(a, b)
	var out *models.Conversation
	err := r.run(func(st *memoryState) error {
		for _, id := range st.convOrder {
			c := st.conversations[id]
			if len(c.ParticipantIDs) != 2 {
				continue
			}
			x, y := orderedPair(c.ParticipantIDs[0], c.ParticipantIDs[1])
			if x == first && y == second {
				out = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memConversations) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var out []*models.Conversation
	err := r.run(func(st *memoryState) error {
		for _, id := range st.convOrder {
			c := st.conversations[id]
			if c.HasParticipant(userID) {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, err
}

func (r memConversations) Insert(ctx context.Context, c *models.Conversation) error {
	return r.run(func(st *memoryState) error {
		st.conversations[c.ID] = *c
		st.convOrder = append(st.convOrder, c.ID)
		return nil
	})
}

func (r memConversations) Update(ctx context.Context, c *models.Conversation) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.conversations[c.ID]; !ok {
			return ErrNotFound
		}
		st.conversations[c.ID] = *c
		return nil
	})
}

type memMessages struct{ run runner }

func (r memMessages) ListByConversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var out []*models.Message
	err := r.run(func(st *memoryState) error {
		for _, id := range st.messageOrder {
			m := st.messages[id]
			if m.ConversationID == conversationID {
				out = append(out, &m)
			}
		}
		return nil
	})
	return out, err
}

func (r memMessages) Insert(ctx context.Context, m *models.Message) error {
	return r.run(func(st *memoryState) error {
		st.messages[m.ID] = *m
		st.messageOrder = append(st.messageOrder, m.ID)
		return nil
	})
}

func (r memMessages) MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error) {
	var changed int64
	err := r.run(func(st *memoryState) error {
		for id, m := range st.messages {
			if m.ConversationID != conversationID || m.RecipientID != recipientID || m.Status == models.MessageStatusRead {
				continue
			}
			readAt := at
			m.Status = models.MessageStatusRead
			m.ReadAt = &readAt
			st.messages[id] = m
			changed++
		}
		return nil
	})
	return changed, err
}
