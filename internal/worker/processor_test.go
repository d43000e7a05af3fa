// internal/worker/processor_test.go
package worker_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/service"
	"github.com/relaycrm/dispatch-backend/internal/worker"
)

type stubJobRepo struct {
	mu       sync.Mutex
	nextID   int
	created  []model.Job
	finished map[string]model.JobStatus
	logs     map[string][]string
}

func (s *stubJobRepo) Create(j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	j.ID = "job-" + string(rune('0'+s.nextID))
	j.Status = model.JobPending
	s.created = append(s.created, *j)
	return nil
}

func (s *stubJobRepo) MarkRunning(id string) error { return nil }

func (s *stubJobRepo) Finish(id string, status model.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished == nil {
		s.finished = map[string]model.JobStatus{}
	}
	s.finished[id] = status
	return nil
}

func (s *stubJobRepo) AppendLog(id, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs == nil {
		s.logs = map[string][]string{}
	}
	s.logs[id] = append(s.logs[id], line)
	return nil
}

func (s *stubJobRepo) GetByID(id string) (*model.Job, error) { return nil, nil }

type stubCompositionRepo struct {
	items map[model.Channel]*model.CompositionItem
}

func (s *stubCompositionRepo) GetByID(id int) (*model.Composition, error) {
	return &model.Composition{ID: id}, nil
}
func (s *stubCompositionRepo) UpdateStatus(id int, status model.CompositionStatus) error { return nil }
func (s *stubCompositionRepo) GetItem(compositionID int, channel model.Channel) (*model.CompositionItem, error) {
	return s.items[channel], nil
}
func (s *stubCompositionRepo) ListItems(compositionID int) ([]model.CompositionItem, error) {
	return nil, nil
}
func (s *stubCompositionRepo) UpdateItemStatus(itemID int, status model.ItemStatus) error { return nil }
func (s *stubCompositionRepo) GetTextBlocks() (map[string]string, error) {
	return map[string]string{}, nil
}

type stubContactRepo struct {
	searchPages [][]int
}

func (s *stubContactRepo) GetByID(id int) (*model.Contact, error)          { return nil, nil }
func (s *stubContactRepo) GetByEmail(email string) (*model.Contact, error) { return nil, nil }
func (s *stubContactRepo) GetByPhone(phone string) (*model.Contact, error) { return nil, nil }
func (s *stubContactRepo) CreateWithSubscription(c *model.Contact, channel model.Channel) error {
	return nil
}
func (s *stubContactRepo) ListByList(listID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	return nil, model.PageInfo{}, nil
}
func (s *stubContactRepo) ListByOrganization(orgID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	return nil, model.PageInfo{}, nil
}
func (s *stubContactRepo) SearchIDs(mask string, page, pageSize int) ([]int, model.PageInfo, error) {
	if page > len(s.searchPages) {
		return nil, model.PageInfo{Page: page, TotalPages: len(s.searchPages)}, nil
	}
	return s.searchPages[page-1], model.PageInfo{Page: page, TotalPages: len(s.searchPages)}, nil
}

type stubCredentialRepo struct{}

func (s *stubCredentialRepo) GetByChannel(channel model.Channel) (*model.ChannelCredential, error) {
	return nil, nil
}
func (s *stubCredentialRepo) List() ([]model.ChannelCredential, error) { return nil, nil }
func (s *stubCredentialRepo) UpdateStatus(id int, status model.CredentialStatus, errorMessage string) error {
	return nil
}
func (s *stubCredentialRepo) SaveTokens(channel model.Channel, accessToken, refreshToken string, expiresAt *time.Time, status model.CredentialStatus) error {
	return nil
}
func (s *stubCredentialRepo) SaveAccount(channel model.Channel, accountID string, status model.CredentialStatus) error {
	return nil
}
func (s *stubCredentialRepo) GetIdentity(id int) (*model.SenderIdentity, error) { return nil, nil }
func (s *stubCredentialRepo) GetChannelSettings(channel model.Channel) (*model.ChannelSettings, error) {
	return &model.ChannelSettings{Channel: channel}, nil
}

type stubPublisher struct {
	mu   sync.Mutex
	jobs []queue.Envelope
}

func (p *stubPublisher) PublishJob(env queue.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, env)
	return nil
}

func (p *stubPublisher) PublishDelayed(env queue.Envelope, delay time.Duration) error { return nil }

func newTestBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"})
}

func newProcessor(jobs *stubJobRepo, contacts *stubContactRepo, pub *stubPublisher) *worker.Processor {
	dispatcher := &service.DispatchService{
		Compositions: &stubCompositionRepo{items: map[model.Channel]*model.CompositionItem{}},
		Jobs:         jobs,
		Queue:        pub,
		Log:          zerolog.Nop(),
	}
	return &worker.Processor{
		Dispatch:    dispatcher,
		Resolver:    &service.ResolverService{Contacts: contacts, Log: zerolog.Nop()},
		Jobs:        jobs,
		Credentials: &stubCredentialRepo{},
		Breaker:     newTestBreaker(),
		Log:         zerolog.Nop(),
	}
}

type stubSender struct {
	channel model.Channel
	note    string
	sent    int
}

func (s *stubSender) Channel() model.Channel                            { return s.channel }
func (s *stubSender) ValidatePreconditions(model.DispatchRequest) error { return nil }
func (s *stubSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	s.sent++
	return s.note, nil
}
func (s *stubSender) CheckHealth(ctx context.Context) error                 { return nil }
func (s *stubSender) RefreshCredential(ctx context.Context) (string, error) { return "", nil }

func TestChannelSendFailureAppendsToParentLog(t *testing.T) {
	jobs := &stubJobRepo{}
	p := newProcessor(jobs, &stubContactRepo{}, &stubPublisher{})

	// The channel has no composition item, so the send fails downstream.
	env, err := queue.NewEnvelope(queue.KindChannelSend, "child-1", "parent-1", queue.ChannelSendPayload{
		Request: model.DispatchRequest{CompositionID: 1, Channels: []string{"SMS"}, To: "1", Type: model.TargetContact},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.ChannelSend(context.Background(), env); err != nil {
		t.Fatalf("a recorded failure must still consume the message, got %v", err)
	}
	if jobs.finished["child-1"] != model.JobFailed {
		t.Errorf("child job status %q, want failed", jobs.finished["child-1"])
	}
	lines := jobs.logs["parent-1"]
	if len(lines) != 1 || !strings.Contains(lines[0], "child-1") {
		t.Errorf("parent log %v, want one line naming the failed child", lines)
	}
}

func TestChannelSendWithEmptyResolutionLandsOnJobLog(t *testing.T) {
	jobs := &stubJobRepo{}
	p := newProcessor(jobs, &stubContactRepo{}, &stubPublisher{})
	sender := &stubSender{channel: model.ChannelSMS, note: "no contacts matched"}
	p.Dispatch.Senders = map[model.Channel]service.Sender{model.ChannelSMS: sender}

	env, err := queue.NewEnvelope(queue.KindChannelSend, "empty-1", "", queue.ChannelSendPayload{
		Request: model.DispatchRequest{CompositionID: 1, Channels: []string{"SMS"}, To: "9", Type: model.TargetList},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.ChannelSend(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if sender.sent != 1 {
		t.Fatalf("sender ran %d times, want 1", sender.sent)
	}
	if jobs.finished["empty-1"] != model.JobDone {
		t.Errorf("job status %q, want done for an empty match", jobs.finished["empty-1"])
	}
	lines := jobs.logs["empty-1"]
	if len(lines) != 1 || !strings.Contains(lines[0], "no contacts matched") {
		t.Errorf("job log %v, want a \"no contacts matched\" line", lines)
	}
}

func TestMassFanoutSpawnsOneChildPerContact(t *testing.T) {
	jobs := &stubJobRepo{}
	pub := &stubPublisher{}
	p := newProcessor(jobs, &stubContactRepo{searchPages: [][]int{{11, 12}, {13}}}, pub)

	env, err := queue.NewEnvelope(queue.KindMassFanout, "fanout-1", "", queue.MassFanoutPayload{
		Request: model.DispatchRequest{CompositionID: 1, Channels: []string{"SMS"}, SearchMask: "acme"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.MassFanout(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if len(pub.jobs) != 3 {
		t.Fatalf("%d child jobs published, want 3", len(pub.jobs))
	}
	for _, child := range pub.jobs {
		if child.Kind != queue.KindChannelSend {
			t.Errorf("child kind %q, want channel-send", child.Kind)
		}
		if child.ParentJobID != "fanout-1" {
			t.Errorf("child parent %q, want fanout-1", child.ParentJobID)
		}
	}
	if jobs.finished["fanout-1"] != model.JobDone {
		t.Errorf("fanout job status %q, want done", jobs.finished["fanout-1"])
	}
}

func TestMassFanoutWithNoMatchesFinishesClean(t *testing.T) {
	jobs := &stubJobRepo{}
	pub := &stubPublisher{}
	p := newProcessor(jobs, &stubContactRepo{searchPages: [][]int{{}}}, pub)

	env, err := queue.NewEnvelope(queue.KindMassFanout, "fanout-2", "", queue.MassFanoutPayload{
		Request: model.DispatchRequest{CompositionID: 1, Channels: []string{"SMS"}, SearchMask: "nobody"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.MassFanout(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if len(pub.jobs) != 0 {
		t.Error("children were queued for an empty result")
	}
	if jobs.finished["fanout-2"] != model.JobDone {
		t.Errorf("fanout job status %q, want done on an empty match", jobs.finished["fanout-2"])
	}
	lines := jobs.logs["fanout-2"]
	if len(lines) == 0 || !strings.Contains(lines[0], "no contacts matched") {
		t.Errorf("fanout log %v, want a \"no contacts matched\" line", lines)
	}
}
