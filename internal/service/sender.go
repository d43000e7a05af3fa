// internal/service/sender.go
package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/provider"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// sendBatchSize bounds concurrency against external APIs: full parallelism
// inside a batch, strict sequencing across batches.
const sendBatchSize = 10

// Sender is the per-channel capability. One implementation exists per Channel
// variant; NewSenders builds the full set so an unknown channel cannot appear
// at send time.
type Sender interface {
	Channel() model.Channel
	// ValidatePreconditions checks channel-specific request fields. It runs
	// only when the channel is actually reached.
	ValidatePreconditions(req model.DispatchRequest) error
	// Send resolves recipients, renders per recipient and delivers through
	// the channel's wire client. The note reports an empty but successful
	// outcome ("no contacts matched") for the caller to surface.
	Send(ctx context.Context, req model.DispatchRequest) (note string, err error)
	CheckHealth(ctx context.Context) error
	RefreshCredential(ctx context.Context) (string, error)
}

// SenderDeps carries everything a channel sender composes.
type SenderDeps struct {
	Resolver     *ResolverService
	Renderer     *Renderer
	Compositions repository.CompositionRepositoryInterface
	Events       repository.EventRepositoryInterface
	Credentials  *CredentialService
	Providers    provider.Set
	HTTP         *http.Client
	Log          zerolog.Logger
}

// NewSenders builds one sender per channel variant. The switch in here is the
// single place channel capabilities are wired.
func NewSenders(deps SenderDeps) map[model.Channel]Sender {
	senders := map[model.Channel]Sender{}
	for _, ch := range model.AllChannels() {
		base := senderBase{channel: ch, SenderDeps: deps}
		switch ch {
		case model.ChannelEmail:
			senders[ch] = &EmailSender{senderBase: base}
		case model.ChannelSMS:
			senders[ch] = &SMSSender{senderBase: base}
		case model.ChannelWhatsApp:
			senders[ch] = &WhatsAppSender{senderBase: base}
		case model.ChannelTelegram:
			senders[ch] = &TelegramSender{senderBase: base}
		case model.ChannelTwitter:
			senders[ch] = &TwitterSender{senderBase: base}
		case model.ChannelLinkedIn:
			senders[ch] = &LinkedInSender{senderBase: base}
		case model.ChannelLinkedInInvitations:
			senders[ch] = &LinkedInInvitationSender{senderBase: base}
		case model.ChannelBlog:
			senders[ch] = &BlogSender{senderBase: base}
		case model.ChannelUnipile:
			senders[ch] = &UnipileSender{senderBase: base}
		}
	}
	return senders
}

type senderBase struct {
	channel model.Channel
	SenderDeps
}

func (b *senderBase) Channel() model.Channel { return b.channel }

// ValidatePreconditions is a no-op by default; channels with extra required
// fields override it.
func (b *senderBase) ValidatePreconditions(model.DispatchRequest) error { return nil }

func (b *senderBase) CheckHealth(ctx context.Context) error {
	return b.Credentials.Check(ctx, b.channel)
}

func (b *senderBase) RefreshCredential(ctx context.Context) (string, error) {
	return b.Credentials.RefreshOrAuthURL(ctx, b.channel)
}

// item fetches the composition item for this channel, failing when absent.
func (b *senderBase) item(req model.DispatchRequest) (*model.CompositionItem, error) {
	item, err := b.Compositions.GetItem(req.CompositionID, b.channel)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	if item == nil {
		return nil, appErrors.NewValidation("Composition doesn't have item for channel %s", b.channel)
	}
	return item, nil
}

// credential fetches this channel's credential, flipping it to disconnected
// when the required fields are missing.
func (b *senderBase) credential(ctx context.Context) (*model.ChannelCredential, error) {
	return b.Credentials.Require(ctx, b.channel)
}

// fetchAttachments downloads an item's attachments once, sniffing MIME types
// for the upload calls. Fetched before the batch loop so a fan-out does not
// re-download per recipient.
func (b *senderBase) fetchAttachments(ctx context.Context, item *model.CompositionItem) ([]provider.Attachment, error) {
	if len(item.Attachments) == 0 {
		return nil, nil
	}
	out := make([]provider.Attachment, 0, len(item.Attachments))
	for _, a := range item.Attachments {
		fetched, err := provider.FetchAttachment(ctx, b.HTTP, a.FileName, a.URL)
		if err != nil {
			return nil, appErrors.NewUpstream(err, "fetch attachment %s: %v", a.FileName, err)
		}
		out = append(out, fetched)
	}
	return out, nil
}

// noContactsMatched reports an empty but successful resolution.
const noContactsMatched = "no contacts matched"

// deliverOpts parameterizes the shared per-recipient pipeline.
type deliverOpts struct {
	// ignoreGate skips subscription opt-in, the escape hatch only email
	// supports. Post channels are never gated; everything else is.
	ignoreGate bool
	// build turns one rendered body into the provider message.
	build func(contact model.Contact, rendered string) (provider.Message, error)
}

// deliver runs the shared batch pipeline: batches of sendBatchSize, parallel
// inside a batch, sequential across batches. A recipient without an active
// subscription yields an "unpublished" event, not a failure; every other
// per-recipient error counts toward the aggregate. Aggregate success requires
// zero failures.
func (b *senderBase) deliver(ctx context.Context, item *model.CompositionItem, contacts []model.Contact, opts deliverOpts) error {
	cred, err := b.credential(ctx)
	if err != nil {
		return err
	}

	total := len(contacts)
	var mu sync.Mutex
	var failed int
	var errs *multierror.Error

	for start := 0; start < total; start += sendBatchSize {
		end := start + sendBatchSize
		if end > total {
			end = total
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, contact := range contacts[start:end] {
			contact := contact
			g.Go(func() error {
				if err := b.sendOne(gctx, cred, item, contact, opts); err != nil && !appErrors.IsSubscription(err) {
					// Opt-outs were already recorded as unpublished events
					// and do not count toward the aggregate.
					mu.Lock()
					failed++
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
				// A failing recipient never aborts the rest of its batch.
				return nil
			})
		}
		_ = g.Wait()
	}

	if failed > 0 {
		b.Log.Warn().Str("channel", b.channel.String()).Int("failed", failed).Int("total", total).
			Err(errs.ErrorOrNil()).Msg("batch completed with failures")
		return appErrors.NewPartialFailure(failed, total)
	}
	return nil
}

func (b *senderBase) sendOne(ctx context.Context, cred *model.ChannelCredential, item *model.CompositionItem, contact model.Contact, opts deliverOpts) error {
	if !b.channel.IsPost() && !opts.ignoreGate && !contact.SubscribedTo(b.channel) {
		b.appendEvent(contact.ID, item, "", model.EventUnpublished, "send", "")
		return appErrors.NewSubscription(contact.ID, b.channel.String())
	}

	rendered, err := b.Renderer.Render(item.Result, contact)
	if err != nil {
		return err
	}

	msg, err := opts.build(contact, rendered)
	if err != nil {
		return err
	}

	start := time.Now()
	id, err := b.Providers.ForChannel(b.channel).Send(ctx, *cred, msg)
	observability.SendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.Sends.WithLabelValues(b.channel.String(), "error").Inc()
		return err
	}
	observability.Sends.WithLabelValues(b.channel.String(), "ok").Inc()

	b.appendEvent(contact.ID, item, msg.To, model.EventPublished, "send", id)
	return nil
}

// publishOnce is the one-shot path for post channels: a single publication,
// then the composition item flips to Published.
func (b *senderBase) publishOnce(ctx context.Context, item *model.CompositionItem, msg provider.Message) error {
	cred, err := b.credential(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	id, err := b.Providers.ForChannel(b.channel).Send(ctx, *cred, msg)
	observability.SendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.Sends.WithLabelValues(b.channel.String(), "error").Inc()
		return err
	}
	observability.Sends.WithLabelValues(b.channel.String(), "ok").Inc()

	b.appendEvent(0, item, msg.To, model.EventPublished, "post", id)
	if err := b.Compositions.UpdateItemStatus(item.ID, model.ItemStatusPublished); err != nil {
		b.Log.Error().Err(err).Int("item_id", item.ID).Msg("failed to flip item to published")
	}
	return nil
}

func (b *senderBase) appendEvent(contactID int, item *model.CompositionItem, destination string, status model.EventStatus, action, payload string) {
	e := &model.Event{
		ContactID:   contactID,
		ItemID:      item.ID,
		Destination: destination,
		Status:      status,
		Action:      action,
		Payload:     payload,
		Channel:     b.channel,
	}
	if err := b.Events.Append(e); err != nil {
		b.Log.Error().Err(err).Str("channel", b.channel.String()).Msg("failed to append event")
	}
}

// renderForPost renders a post channel's body with no recipient context.
func (b *senderBase) renderForPost(item *model.CompositionItem) (string, error) {
	return b.Renderer.Render(item.Result, model.Contact{})
}
