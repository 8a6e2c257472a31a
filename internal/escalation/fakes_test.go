package escalation

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"escalation-service/internal/models"
	"escalation-service/internal/queue"
)

// memData implements Store on plain maps, without locking.
type memData struct {
	users        map[int64]models.User
	orgs         map[int64]models.Organization
	alerts       map[int64]models.Alert
	policies     map[int64]models.NotificationPolicy
	leases       map[[2]int64]*models.EscalationLease
	chatMessages map[int64]models.ChatMessage
	records      []models.LogRecord
	nextRecordID int64
}

func newMemData() *memData {
	return &memData{
		users:        make(map[int64]models.User),
		orgs:         make(map[int64]models.Organization),
		alerts:       make(map[int64]models.Alert),
		policies:     make(map[int64]models.NotificationPolicy),
		leases:       make(map[[2]int64]*models.EscalationLease),
		chatMessages: make(map[int64]models.ChatMessage),
	}
}

func (d *memData) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(d)
}

func (d *memData) GetUser(_ context.Context, id int64) (models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (d *memData) GetOrganization(_ context.Context, id int64) (models.Organization, error) {
	o, ok := d.orgs[id]
	if !ok {
		return models.Organization{}, ErrNotFound
	}
	return o, nil
}

func (d *memData) GetAlert(_ context.Context, id int64) (models.Alert, error) {
	a, ok := d.alerts[id]
	if !ok {
		return models.Alert{}, ErrNotFound
	}
	return a, nil
}

func (d *memData) GetPolicy(_ context.Context, id int64) (models.NotificationPolicy, error) {
	p, ok := d.policies[id]
	if !ok {
		return models.NotificationPolicy{}, ErrNotFound
	}
	return p, nil
}

func (d *memData) orderedPolicies(userID int64, important bool) []models.NotificationPolicy {
	var out []models.NotificationPolicy
	for _, p := range d.policies {
		if p.UserID == userID && p.Important == important {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (d *memData) GetPolicies(_ context.Context, userID int64, important bool) ([]models.NotificationPolicy, error) {
	return d.orderedPolicies(userID, important), nil
}

func (d *memData) PolicyByOrder(_ context.Context, userID int64, important bool, order int) (models.NotificationPolicy, error) {
	for _, p := range d.orderedPolicies(userID, important) {
		if p.Order == order {
			return p, nil
		}
	}
	return models.NotificationPolicy{}, ErrNotFound
}

func (d *memData) NextPolicy(_ context.Context, p models.NotificationPolicy) (*models.NotificationPolicy, error) {
	for _, next := range d.orderedPolicies(p.UserID, p.Important) {
		if next.Order > p.Order {
			n := next
			return &n, nil
		}
	}
	return nil, nil
}

func (d *memData) LockLease(_ context.Context, userID, alertID int64) (models.EscalationLease, error) {
	key := [2]int64{userID, alertID}
	if _, ok := d.leases[key]; !ok {
		d.leases[key] = &models.EscalationLease{UserID: userID, AlertID: alertID}
	}
	return *d.leases[key], nil
}

func (d *memData) SetLeaseToken(_ context.Context, userID, alertID int64, token *string) error {
	key := [2]int64{userID, alertID}
	if _, ok := d.leases[key]; !ok {
		d.leases[key] = &models.EscalationLease{UserID: userID, AlertID: alertID}
	}
	d.leases[key].ActiveTaskID = token
	return nil
}

func (d *memData) GetLease(_ context.Context, userID, alertID int64) (models.EscalationLease, error) {
	l, ok := d.leases[[2]int64{userID, alertID}]
	if !ok {
		return models.EscalationLease{}, ErrNotFound
	}
	return *l, nil
}

func (d *memData) CreateLogRecord(_ context.Context, rec models.LogRecord) (models.LogRecord, error) {
	d.nextRecordID++
	rec.ID = d.nextRecordID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	d.records = append(d.records, rec)
	return rec, nil
}

func (d *memData) GetLogRecord(_ context.Context, id int64) (models.LogRecord, error) {
	for _, r := range d.records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.LogRecord{}, ErrNotFound
}

func (d *memData) HasTriggered(_ context.Context, userID, alertID int64) (bool, error) {
	for _, r := range d.records {
		if r.UserID == userID && r.AlertID == alertID && r.Type == models.LogTriggered {
			return true, nil
		}
	}
	return false, nil
}

func (d *memData) GetChatMessage(_ context.Context, alertID int64) (models.ChatMessage, error) {
	m, ok := d.chatMessages[alertID]
	if !ok {
		return models.ChatMessage{}, ErrNotFound
	}
	return m, nil
}

// memStore serializes all access with one mutex, standing in for the lease
// row lock.
type memStore struct {
	mu sync.Mutex
	d  *memData
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{d: newMemData()}
}

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.d)
}

func (m *memStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetUser(ctx, id)
}

func (m *memStore) GetOrganization(ctx context.Context, id int64) (models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetOrganization(ctx, id)
}

func (m *memStore) GetAlert(ctx context.Context, id int64) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetAlert(ctx, id)
}

func (m *memStore) GetPolicy(ctx context.Context, id int64) (models.NotificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetPolicy(ctx, id)
}

func (m *memStore) GetPolicies(ctx context.Context, userID int64, important bool) ([]models.NotificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetPolicies(ctx, userID, important)
}

func (m *memStore) PolicyByOrder(ctx context.Context, userID int64, important bool, order int) (models.NotificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.PolicyByOrder(ctx, userID, important, order)
}

func (m *memStore) NextPolicy(ctx context.Context, p models.NotificationPolicy) (*models.NotificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.NextPolicy(ctx, p)
}

func (m *memStore) LockLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.LockLease(ctx, userID, alertID)
}

func (m *memStore) SetLeaseToken(ctx context.Context, userID, alertID int64, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SetLeaseToken(ctx, userID, alertID, token)
}

func (m *memStore) GetLease(ctx context.Context, userID, alertID int64) (models.EscalationLease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetLease(ctx, userID, alertID)
}

func (m *memStore) CreateLogRecord(ctx context.Context, rec models.LogRecord) (models.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.CreateLogRecord(ctx, rec)
}

func (m *memStore) GetLogRecord(ctx context.Context, id int64) (models.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetLogRecord(ctx, id)
}

func (m *memStore) HasTriggered(ctx context.Context, userID, alertID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.HasTriggered(ctx, userID, alertID)
}

func (m *memStore) GetChatMessage(ctx context.Context, alertID int64) (models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.GetChatMessage(ctx, alertID)
}

func (m *memStore) allRecords() []models.LogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LogRecord, len(m.d.records))
	copy(out, m.d.records)
	return out
}

func (m *memStore) lease(userID, alertID int64) models.EscalationLease {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.d.leases[[2]int64{userID, alertID}]
	if !ok {
		return models.EscalationLease{UserID: userID, AlertID: alertID}
	}
	return *l
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func tasksOfType(scheduled []queue.Scheduled, taskType string) []queue.Scheduled {
	var out []queue.Scheduled
	for _, s := range scheduled {
		if s.Task.Type == taskType {
			out = append(out, s)
		}
	}
	return out
}

type sentCall struct {
	method string
	user   models.User
	alert  models.Alert
	policy models.NotificationPolicy
}

type fakePhone struct {
	mu    sync.Mutex
	calls []sentCall
	err   error
}

func (f *fakePhone) NotifyBySMS(_ context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentCall{"sms", user, alert, policy})
	return f.err
}

func (f *fakePhone) NotifyByCall(_ context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentCall{"call", user, alert, policy})
	return f.err
}

type fakeTelegram struct {
	calls []sentCall
	err   error
}

func (f *fakeTelegram) NotifyUser(_ context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	f.calls = append(f.calls, sentCall{"telegram", user, alert, policy})
	return f.err
}

type fakeChat struct {
	calls []models.ChatMessage
	err   error
}

func (f *fakeChat) SendToThread(_ context.Context, msg models.ChatMessage, _ models.User, _ models.Alert, _ models.NotificationPolicy) error {
	f.calls = append(f.calls, msg)
	return f.err
}

type fakeNotifier struct {
	calls []sentCall
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, user models.User, alert models.Alert, policy models.NotificationPolicy) error {
	f.calls = append(f.calls, sentCall{"backend", user, alert, policy})
	return f.err
}
