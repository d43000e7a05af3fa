// internal/service/mocks_test.go
package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/provider"
	"github.com/relaycrm/dispatch-backend/internal/queue"
)

// --- Mock Repositories ---

type mockContactRepo struct {
	mu      sync.Mutex
	byID    map[int]model.Contact
	byEmail map[string]model.Contact
	byPhone map[string]model.Contact
	nextID  int
	created []model.Contact

	listPages   [][]model.Contact
	searchPages [][]int

	err error
}

func (m *mockContactRepo) GetByID(id int) (*model.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byID[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockContactRepo) GetByEmail(email string) (*model.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byEmail[email]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockContactRepo) GetByPhone(phone string) (*model.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.byPhone[phone]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockContactRepo) CreateWithSubscription(c *model.Contact, channel model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.Subscriptions = []model.Subscription{{ContactID: c.ID, Channel: channel, Active: true}}
	m.created = append(m.created, *c)
	if m.byEmail == nil {
		m.byEmail = map[string]model.Contact{}
	}
	if m.byPhone == nil {
		m.byPhone = map[string]model.Contact{}
	}
	if c.Email != "" {
		m.byEmail[c.Email] = *c
	}
	if c.Phone != "" {
		m.byPhone[c.Phone] = *c
	}
	return nil
}

func (m *mockContactRepo) ListByList(listID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	return m.page(page)
}

func (m *mockContactRepo) ListByOrganization(orgID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	return m.page(page)
}

func (m *mockContactRepo) page(page int) ([]model.Contact, model.PageInfo, error) {
	if m.err != nil {
		return nil, model.PageInfo{}, m.err
	}
	if page > len(m.listPages) {
		return nil, model.PageInfo{Page: page, TotalPages: len(m.listPages)}, nil
	}
	return m.listPages[page-1], model.PageInfo{Page: page, TotalPages: len(m.listPages)}, nil
}

func (m *mockContactRepo) SearchIDs(mask string, page, pageSize int) ([]int, model.PageInfo, error) {
	if m.err != nil {
		return nil, model.PageInfo{}, m.err
	}
	if page > len(m.searchPages) {
		return nil, model.PageInfo{Page: page, TotalPages: len(m.searchPages)}, nil
	}
	return m.searchPages[page-1], model.PageInfo{Page: page, TotalPages: len(m.searchPages)}, nil
}

type mockCompositionRepo struct {
	composition *model.Composition
	items       map[model.Channel]*model.CompositionItem
	textBlocks  map[string]string

	textBlockCalls    int
	statusUpdates     map[int]model.ItemStatus
	compositionStatus map[int]model.CompositionStatus
	err               error
}

func (m *mockCompositionRepo) GetByID(id int) (*model.Composition, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.composition == nil {
		return &model.Composition{ID: id, Name: "Launch"}, nil
	}
	return m.composition, nil
}

func (m *mockCompositionRepo) UpdateStatus(id int, status model.CompositionStatus) error {
	if m.compositionStatus == nil {
		m.compositionStatus = map[int]model.CompositionStatus{}
	}
	m.compositionStatus[id] = status
	return nil
}

func (m *mockCompositionRepo) GetItem(compositionID int, channel model.Channel) (*model.CompositionItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items[channel], nil
}

func (m *mockCompositionRepo) ListItems(compositionID int) ([]model.CompositionItem, error) {
	out := []model.CompositionItem{}
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockCompositionRepo) UpdateItemStatus(itemID int, status model.ItemStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = map[int]model.ItemStatus{}
	}
	m.statusUpdates[itemID] = status
	return nil
}

func (m *mockCompositionRepo) GetTextBlocks() (map[string]string, error) {
	m.textBlockCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.textBlocks, nil
}

type mockEventRepo struct {
	mu     sync.Mutex
	events []model.Event
}

func (m *mockEventRepo) Append(e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventRepo) withStatus(status model.EventStatus) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Event{}
	for _, e := range m.events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type mockCredentialRepo struct {
	creds         map[model.Channel]*model.ChannelCredential
	settings      map[model.Channel]*model.ChannelSettings
	statusUpdates []model.CredentialStatus
	lastError     string
	savedTokens   []string
	savedAccounts []string
}

func (m *mockCredentialRepo) GetByChannel(channel model.Channel) (*model.ChannelCredential, error) {
	return m.creds[channel], nil
}

func (m *mockCredentialRepo) List() ([]model.ChannelCredential, error) {
	out := []model.ChannelCredential{}
	for _, c := range m.creds {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCredentialRepo) UpdateStatus(id int, status model.CredentialStatus, errorMessage string) error {
	m.statusUpdates = append(m.statusUpdates, status)
	m.lastError = errorMessage
	return nil
}

func (m *mockCredentialRepo) SaveTokens(channel model.Channel, accessToken, refreshToken string, expiresAt *time.Time, status model.CredentialStatus) error {
	m.savedTokens = append(m.savedTokens, accessToken)
	return nil
}

func (m *mockCredentialRepo) SaveAccount(channel model.Channel, accountID string, status model.CredentialStatus) error {
	m.savedAccounts = append(m.savedAccounts, accountID)
	return nil
}

func (m *mockCredentialRepo) GetIdentity(id int) (*model.SenderIdentity, error) {
	return &model.SenderIdentity{ID: id, Name: "Ops", Email: "ops@relaycrm.test"}, nil
}

func (m *mockCredentialRepo) GetChannelSettings(channel model.Channel) (*model.ChannelSettings, error) {
	if s, ok := m.settings[channel]; ok {
		return s, nil
	}
	return &model.ChannelSettings{Channel: channel}, nil
}

type mockScheduledRepo struct {
	created   []model.ScheduledDispatch
	published []int
}

func (m *mockScheduledRepo) Create(d *model.ScheduledDispatch) error {
	d.ID = len(m.created) + 1
	m.created = append(m.created, *d)
	return nil
}

func (m *mockScheduledRepo) GetByID(id int) (*model.ScheduledDispatch, error) {
	for _, d := range m.created {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

func (m *mockScheduledRepo) DueBetween(from, to time.Time) ([]model.ScheduledDispatch, error) {
	return nil, nil
}

func (m *mockScheduledRepo) MarkProcessing(id int) (bool, error) { return true, nil }

func (m *mockScheduledRepo) MarkPublished(id int) error {
	m.published = append(m.published, id)
	return nil
}

type mockJobRepo struct {
	mu      sync.Mutex
	nextID  int
	created []model.Job
	logs    map[string][]string
}

func (m *mockJobRepo) Create(j *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	j.ID = string(rune('a' + m.nextID - 1))
	j.Status = model.JobPending
	m.created = append(m.created, *j)
	return nil
}

func (m *mockJobRepo) MarkRunning(id string) error { return nil }

func (m *mockJobRepo) Finish(id string, status model.JobStatus) error { return nil }

func (m *mockJobRepo) AppendLog(id, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logs == nil {
		m.logs = map[string][]string{}
	}
	m.logs[id] = append(m.logs[id], line)
	return nil
}

func (m *mockJobRepo) GetByID(id string) (*model.Job, error) { return nil, nil }

// --- Mock broker ---

type mockPublisher struct {
	mu      sync.Mutex
	jobs    []queue.Envelope
	delayed []queue.Envelope
	err     error
}

func (m *mockPublisher) PublishJob(env queue.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, env)
	return nil
}

func (m *mockPublisher) PublishDelayed(env queue.Envelope, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.delayed = append(m.delayed, env)
	return nil
}

// --- Mock wire clients ---

// mockClient fails sends for destinations listed in failTo.
type mockClient struct {
	mu       sync.Mutex
	sent     []provider.Message
	failTo   map[string]bool
	probeErr error
}

func (m *mockClient) Send(ctx context.Context, cred model.ChannelCredential, msg provider.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return "", errors.New("provider rejected message")
	}
	m.sent = append(m.sent, msg)
	return "msg-1", nil
}

func (m *mockClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return m.probeErr
}

type mockOAuthClient struct {
	mockClient
	refreshErr  error
	exchangeErr error
}

func (m *mockOAuthClient) AuthURL(state string) string { return "https://auth.example/grant?s=" + state }

func (m *mockOAuthClient) Exchange(ctx context.Context, code string) (provider.Tokens, error) {
	if m.exchangeErr != nil {
		return provider.Tokens{}, m.exchangeErr
	}
	return provider.Tokens{AccessToken: "exchanged-" + code, RefreshToken: "rt"}, nil
}

func (m *mockOAuthClient) Refresh(ctx context.Context, refreshToken string) (provider.Tokens, error) {
	if m.refreshErr != nil {
		return provider.Tokens{}, m.refreshErr
	}
	return provider.Tokens{AccessToken: "refreshed", RefreshToken: refreshToken}, nil
}
