// internal/scheduler/consumer_test.go
package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/scheduler"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

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
	out := []model.CompositionItem{}
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out, nil
}
func (s *stubCompositionRepo) UpdateItemStatus(itemID int, status model.ItemStatus) error { return nil }
func (s *stubCompositionRepo) GetTextBlocks() (map[string]string, error) {
	return map[string]string{}, nil
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
func (s *stubCredentialRepo) GetIdentity(id int) (*model.SenderIdentity, error) {
	return &model.SenderIdentity{ID: id, Email: "ops@relaycrm.test"}, nil
}
func (s *stubCredentialRepo) GetChannelSettings(channel model.Channel) (*model.ChannelSettings, error) {
	return &model.ChannelSettings{Channel: channel}, nil
}

// The consumer marks a scheduled dispatch published even when the downstream
// dispatch fails; a failed scheduled send is re-triggered manually, never
// replayed by the broker.
func TestHandleMarksPublishedRegardlessOfDispatchOutcome(t *testing.T) {
	repo := &stubScheduledRepo{due: []model.ScheduledDispatch{
		{
			ID:            3,
			CompositionID: 1,
			Channel:       model.ChannelEmail,
			To:            "1",
			Type:          model.TargetContact,
			IdentityID:    8,
			Subject:       "Later",
			PublishDate:   time.Now(),
			Status:        model.ScheduleStatusProcessing,
		},
	}}
	// No Email item exists, so the orchestrator rejects the dispatch.
	orchestrator := &service.DispatchService{
		Compositions: &stubCompositionRepo{items: map[model.Channel]*model.CompositionItem{}},
		Scheduled:    repo,
		Queue:        &stubPublisher{},
		Log:          zerolog.Nop(),
	}
	c := &scheduler.Consumer{
		Scheduled:    repo,
		Credentials:  &stubCredentialRepo{},
		Orchestrator: orchestrator,
		Log:          zerolog.Nop(),
	}

	err := c.Handle(context.Background(), queue.DelayedDispatchPayload{ScheduledDispatchID: 3})
	if err != nil {
		t.Fatalf("a failed dispatch must still consume the message, got %v", err)
	}
	if len(repo.published) != 1 || repo.published[0] != 3 {
		t.Errorf("published %v, want the dispatch marked published despite the failure", repo.published)
	}
}

func TestHandleUnknownDispatchIsAnError(t *testing.T) {
	c := &scheduler.Consumer{
		Scheduled:    &stubScheduledRepo{},
		Credentials:  &stubCredentialRepo{},
		Orchestrator: &service.DispatchService{Log: zerolog.Nop()},
		Log:          zerolog.Nop(),
	}
	if err := c.Handle(context.Background(), queue.DelayedDispatchPayload{ScheduledDispatchID: 99}); err == nil {
		t.Error("a missing scheduled dispatch must surface as an error")
	}
}
