// internal/service/dispatch_service_test.go
package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/queue"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

type dispatchFixture struct {
	*senderFixture
	scheduled  *mockScheduledRepo
	jobs       *mockJobRepo
	publisher  *mockPublisher
	dispatcher *service.DispatchService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		senderFixture: newSenderFixture(),
		scheduled:     &mockScheduledRepo{},
		jobs:          &mockJobRepo{},
		publisher:     &mockPublisher{},
	}
	f.dispatcher = &service.DispatchService{
		Senders:      f.senders,
		Compositions: f.compositions,
		Scheduled:    f.scheduled,
		Jobs:         f.jobs,
		Queue:        f.publisher,
		Log:          zerolog.Nop(),
	}
	return f
}

func TestDispatchRejectsMissingCompositionItem(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}

	req := model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS", "WhatsApp"}, // no WhatsApp item
		To:            "1",
		Type:          model.TargetContact,
	}
	res := f.dispatcher.Dispatch(context.Background(), req)
	if res.Success {
		t.Fatal("dispatch succeeded despite a missing composition item")
	}
	if res.Status != 400 {
		t.Errorf("status %d, want 400", res.Status)
	}
	if !strings.Contains(res.Message, "Composition doesn't have item for channel WhatsApp") {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if len(f.sms.sent) != 0 {
		t.Error("a channel was sent before validation completed")
	}
}

func TestDispatchRejectsUnknownChannel(t *testing.T) {
	f := newDispatchFixture()
	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"Carrier Pigeon"},
		To:            "1",
		Type:          model.TargetContact,
	})
	if res.Success || res.Status != 400 {
		t.Errorf("got success=%v status=%d, want rejection with 400", res.Success, res.Status)
	}
}

func TestDispatchSurfacesStoreOutage(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.err = errors.New("dial tcp: connection refused")

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS"},
		To:            "1",
		Type:          model.TargetContact,
	})
	if res.Success {
		t.Fatal("dispatch succeeded with the store unreachable")
	}
	if res.Status != 500 {
		t.Errorf("status %d, want 500", res.Status)
	}
	if !strings.Contains(res.Message, "probably the content store is down") {
		t.Errorf("message %q lacks the store-outage hint", res.Message)
	}
}

func TestDispatchFlipsPendingCompositionToFinished(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.composition = &model.Composition{ID: 1, Status: model.CompositionPending}
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}
	at := time.Now().Add(time.Hour)

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS"},
		To:            "1",
		Type:          model.TargetContact,
		ScheduledAt:   &at,
	})
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Message)
	}
	if f.compositions.compositionStatus[1] != model.CompositionFinished {
		t.Error("composition with items for every requested channel was not flipped to Finished")
	}
}

func TestDispatchSingleContactRunsSynchronously(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}
	f.contacts.byID[1] = model.Contact{
		ID: 1, Phone: "+001",
		Subscriptions: []model.Subscription{{ContactID: 1, Channel: model.ChannelSMS, Active: true}},
	}

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS"},
		To:            "1",
		Type:          model.TargetContact,
	})
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Message)
	}
	if len(f.sms.sent) != 1 {
		t.Errorf("%d sends, want 1 synchronous send", len(f.sms.sent))
	}
	if len(f.publisher.jobs) != 0 {
		t.Error("single-contact dispatch must not enqueue jobs")
	}
}

func TestDispatchListTargetEnqueuesPerChannel(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}
	f.compositions.items[model.ChannelWhatsApp] = &model.CompositionItem{ID: 2, Channel: model.ChannelWhatsApp, Result: "x"}

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS", "WhatsApp"},
		To:            "9",
		Type:          model.TargetList,
	})
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Message)
	}
	if len(f.publisher.jobs) != 2 {
		t.Fatalf("%d jobs published, want one per channel", len(f.publisher.jobs))
	}
	for _, env := range f.publisher.jobs {
		if env.Kind != queue.KindChannelSend {
			t.Errorf("job kind %q, want %q", env.Kind, queue.KindChannelSend)
		}
		if env.Version != queue.EnvelopeVersion {
			t.Errorf("envelope version %d, want %d", env.Version, queue.EnvelopeVersion)
		}
	}
	if len(f.sms.sent) != 0 {
		t.Error("queued dispatch sent synchronously")
	}
}

func TestDispatchSearchMaskEnqueuesMassFanout(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelEmail] = &model.CompositionItem{ID: 1, Channel: model.ChannelEmail, Result: "x"}

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"Email"},
		SearchMask:    "acme",
		Type:          model.TargetContact,
		From:          "a@b.c",
		Subject:       "s",
	})
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Message)
	}
	if len(f.publisher.jobs) != 1 || f.publisher.jobs[0].Kind != queue.KindMassFanout {
		t.Fatalf("want exactly one mass-fanout job, got %+v", f.publisher.jobs)
	}
	if len(f.jobs.created) != 1 {
		t.Errorf("%d job rows created, want 1", len(f.jobs.created))
	}
}

func TestDispatchScheduledCreatesRowsOnly(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}
	at := time.Now().Add(2 * time.Hour)

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS"},
		To:            "1",
		Type:          model.TargetContact,
		ScheduledAt:   &at,
	})
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Message)
	}
	if len(f.scheduled.created) != 1 {
		t.Fatalf("%d scheduled rows, want 1", len(f.scheduled.created))
	}
	row := f.scheduled.created[0]
	if row.Status != model.ScheduleStatusScheduled {
		t.Errorf("row status %q, want scheduled", row.Status)
	}
	if !row.PublishDate.Equal(at) {
		t.Errorf("publish date %v, want %v", row.PublishDate, at)
	}
	if len(f.publisher.jobs)+len(f.publisher.delayed) != 0 {
		t.Error("scheduling must not touch the broker")
	}
}

func TestDispatchFailingChannelAbortsSyncRun(t *testing.T) {
	f := newDispatchFixture()
	f.compositions.items[model.ChannelSMS] = &model.CompositionItem{ID: 1, Channel: model.ChannelSMS, Result: "x"}
	f.compositions.items[model.ChannelWhatsApp] = &model.CompositionItem{ID: 2, Channel: model.ChannelWhatsApp, Result: "x"}
	f.contacts.byID[1] = model.Contact{
		ID: 1, Phone: "+001",
		Subscriptions: []model.Subscription{
			{ContactID: 1, Channel: model.ChannelSMS, Active: true},
			{ContactID: 1, Channel: model.ChannelWhatsApp, Active: true},
		},
	}
	f.sms.failTo = map[string]bool{"+001": true}

	res := f.dispatcher.Dispatch(context.Background(), model.DispatchRequest{
		CompositionID: 1,
		Channels:      []string{"SMS", "WhatsApp"},
		To:            "1",
		Type:          model.TargetContact,
	})
	if res.Success {
		t.Fatal("dispatch reported success although the first channel failed")
	}
	if res.Status != 206 {
		t.Errorf("status %d, want 206 for the failed batch", res.Status)
	}
}
