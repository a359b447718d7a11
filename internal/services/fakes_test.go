package service

import (
	"context"
	"sync"
	"time"

	"github.com/safehold/escrowpay/internal/infrastructure/gateway"
	"github.com/safehold/escrowpay/internal/infrastructure/redis"
	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
)

// In-memory fakes for the repository, Redis, Kafka and gateway contracts.

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	locked bool // when set, SetNX always reports the key as taken
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.ErrKeyNotFound
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := value.(string); ok {
		f.data[key] = s
	} else {
		f.data[key] = "set"
	}
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return false, nil
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = "locked"
	return true, nil
}

func (f *fakeRedis) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeRedis) Close() error { return nil }

type sentMessage struct {
	Topic string
	Key   string
	Value []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeProducer) Send(ctx context.Context, topic string, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Topic: topic, Key: key, Value: value})
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func (f *fakeProducer) messages(topic string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int32
	users  map[int32]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int32]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return pkgerrors.ErrUsernameExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int32) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, pkgerrors.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, userID int32, email, fullName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	u.Email = email
	u.FullName = fullName
	return nil
}

func (r *fakeUserRepo) SetKYCTier(ctx context.Context, userID int32, tier models.KYCTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	u.KYCTier = tier
	return nil
}

type fakeEscrowRepo struct {
	mu      sync.Mutex
	nextID  int32
	escrows map[int32]*models.Escrow
}

func newFakeEscrowRepo(escrows ...*models.Escrow) *fakeEscrowRepo {
	r := &fakeEscrowRepo{escrows: map[int32]*models.Escrow{}}
	for _, e := range escrows {
		r.escrows[e.ID] = e
		if e.ID > r.nextID {
			r.nextID = e.ID
		}
	}
	return r
}

func cloneEscrow(e *models.Escrow) *models.Escrow {
	cp := *e
	if e.Payment != nil {
		p := *e.Payment
		cp.Payment = &p
	}
	if e.Dispute != nil {
		d := *e.Dispute
		cp.Dispute = &d
	}
	cp.Timeline = append([]models.TimelineEntry(nil), e.Timeline...)
	return &cp
}

func (r *fakeEscrowRepo) Create(ctx context.Context, escrow *models.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	escrow.ID = r.nextID
	escrow.CreatedAt = time.Now()
	escrow.UpdatedAt = escrow.CreatedAt
	escrow.Timeline = []models.TimelineEntry{{Status: escrow.Status, Timestamp: escrow.CreatedAt}}
	r.escrows[escrow.ID] = cloneEscrow(escrow)
	return nil
}

func (r *fakeEscrowRepo) GetByID(ctx context.Context, id int32) (*models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.escrows[id]; ok {
		return cloneEscrow(e), nil
	}
	return nil, pkgerrors.ErrEscrowNotFound
}

func (r *fakeEscrowRepo) GetByReference(ctx context.Context, reference string) (*models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.escrows {
		if e.Reference == reference {
			return cloneEscrow(e), nil
		}
	}
	return nil, pkgerrors.ErrEscrowNotFound
}

func (r *fakeEscrowRepo) ListByUser(ctx context.Context, userID int32) ([]models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Escrow
	for _, e := range r.escrows {
		if e.BuyerID == userID || e.SellerID == userID {
			out = append(out, *cloneEscrow(e))
		}
	}
	return out, nil
}

func (r *fakeEscrowRepo) UpdateStatus(ctx context.Context, id int32, from, to models.EscrowStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return pkgerrors.ErrEscrowNotFound
	}
	if e.Status != from {
		return pkgerrors.ErrStaleStatus
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	e.Timeline = append(e.Timeline, models.TimelineEntry{Status: to, Timestamp: e.UpdatedAt})
	return nil
}

func (r *fakeEscrowRepo) SetPayment(ctx context.Context, id int32, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return pkgerrors.ErrEscrowNotFound
	}
	if e.Payment == nil {
		e.Payment = &models.Payment{}
	}
	e.Payment.Method = payment.Method
	e.Payment.Reference = payment.Reference
	if payment.PaidAt != nil {
		e.Payment.PaidAt = payment.PaidAt
	}
	return nil
}

func (r *fakeEscrowRepo) SetDispute(ctx context.Context, id int32, dispute *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return pkgerrors.ErrEscrowNotFound
	}
	e.Dispute = dispute
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages []models.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByEscrow(ctx context.Context, escrowID int32, sinceID int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, m := range r.messages {
		if m.EscrowID == escrowID && m.ID > sinceID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications []models.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID int32) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID int32, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return pkgerrors.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, userID int32, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return pkgerrors.ErrNotificationNotFound
}

type fakeGateway struct {
	method     gateway.Method
	initURL    string
	initErr    error
	verify     *gateway.VerifyResult
	verifyErr  error
	lastInit   *gateway.InitializeRequest
	lastVerify string
}

func (f *fakeGateway) Name() gateway.Method { return f.method }

func (f *fakeGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	f.lastInit = &req
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &gateway.InitializeResponse{AuthorizationURL: f.initURL}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	f.lastVerify = reference
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verify, nil
}
