// internal/service/resolver_service_test.go
package service_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

func newResolver(repo *mockContactRepo) *service.ResolverService {
	return &service.ResolverService{Contacts: repo, Log: zerolog.Nop()}
}

func TestResolveRawEmailIsIdempotent(t *testing.T) {
	repo := &mockContactRepo{}
	resolver := newResolver(repo)
	req := model.DispatchRequest{To: "new@example.com", Type: model.TargetContact}

	first, err := resolver.Resolve(req, model.ChannelEmail)
	if err != nil {
		t.Fatal(err)
	}
	second, err := resolver.Resolve(req, model.ChannelEmail)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("resolved %d then %d contacts, want 1 and 1", len(first), len(second))
	}
	if len(repo.created) != 1 {
		t.Errorf("contact created %d times, want 1", len(repo.created))
	}
	if first[0].ID != second[0].ID {
		t.Errorf("repeated resolve returned different contacts: %d vs %d", first[0].ID, second[0].ID)
	}
	if !second[0].SubscribedTo(model.ChannelEmail) {
		t.Error("created contact lacks the default subscription")
	}
}

func TestResolveUnknownContactID(t *testing.T) {
	resolver := newResolver(&mockContactRepo{})
	_, err := resolver.Resolve(model.DispatchRequest{To: "42", Type: model.TargetContact}, model.ChannelSMS)
	if err == nil {
		t.Fatal("expected an error for an unknown contact id")
	}
}

func TestResolveListDeduplicatesAcrossPages(t *testing.T) {
	alice := model.Contact{ID: 1, Email: "alice@example.com"}
	bob := model.Contact{ID: 2, Email: "bob@example.com"}
	carol := model.Contact{ID: 3, Phone: "+111"}
	repo := &mockContactRepo{
		listPages: [][]model.Contact{
			{alice, bob},
			{bob, carol}, // bob repeats on the second page
			{alice},      // and alice on the third
		},
	}
	resolver := newResolver(repo)

	contacts, err := resolver.Resolve(model.DispatchRequest{To: "7", Type: model.TargetList}, model.ChannelEmail)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 3 {
		t.Fatalf("resolved %d contacts, want 3 distinct identities", len(contacts))
	}

	seen := map[string]int{}
	for _, c := range contacts {
		seen[c.Identity()]++
	}
	for identity, n := range seen {
		if n > 1 {
			t.Errorf("identity %q appears %d times", identity, n)
		}
	}
}

func TestResolveFanOutOverIdentifierArray(t *testing.T) {
	repo := &mockContactRepo{
		byID: map[int]model.Contact{5: {ID: 5, Email: "five@example.com"}},
	}
	resolver := newResolver(repo)

	req := model.DispatchRequest{To: `["5", "new@example.com", "5"]`, Type: model.TargetContact}
	contacts, err := resolver.Resolve(req, model.ChannelEmail)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 2 {
		t.Fatalf("resolved %d contacts, want 2 (duplicate id collapsed)", len(contacts))
	}
}

func TestResolveSearchIDsWalksAllPages(t *testing.T) {
	repo := &mockContactRepo{searchPages: [][]int{{1, 2}, {3}, {4, 5}}}
	resolver := newResolver(repo)

	ids, err := resolver.ResolveSearchIDs("acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 5 {
		t.Errorf("got %d ids, want 5 across all pages", len(ids))
	}
}
