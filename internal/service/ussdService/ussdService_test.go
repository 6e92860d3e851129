package ussdService

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/data/repository"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
)

type fakeRepo struct {
	subs        map[string]model.Subscriber
	failAll     bool
	inserts     int
	updateCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: make(map[string]model.Subscriber)}
}

func (r *fakeRepo) GetSubscriber(_ context.Context, phone string) (model.Subscriber, error) {
	if r.failAll {
		return model.Subscriber{}, errors.New("db down")
	}
	sub, ok := r.subs[phone]
	if !ok {
		return model.Subscriber{}, repository.ErrNotFound
	}
	return sub, nil
}

func (r *fakeRepo) InsertSubscriber(_ context.Context, phone string) error {
	if r.failAll {
		return errors.New("db down")
	}
	if _, ok := r.subs[phone]; ok {
		return repository.ErrAlreadyExists
	}
	r.subs[phone] = model.Subscriber{PhoneNumber: phone}
	r.inserts++
	return nil
}

func (r *fakeRepo) DeleteSubscriber(_ context.Context, phone string) error {
	if r.failAll {
		return errors.New("db down")
	}
	delete(r.subs, phone)
	return nil
}

func (r *fakeRepo) UpdateSubscribedStocks(_ context.Context, phone string, stocks []string) error {
	if r.failAll {
		return errors.New("db down")
	}
	sub, ok := r.subs[phone]
	if !ok {
		return repository.ErrNotFound
	}
	r.updateCalls++
	sub.Stocks = stocks
	r.subs[phone] = sub
	return nil
}

func (r *fakeRepo) UpdateNotificationPreference(_ context.Context, phone string, kind model.NotificationKind, enabled bool) error {
	if r.failAll {
		return errors.New("db down")
	}
	sub, ok := r.subs[phone]
	if !ok {
		return repository.ErrNotFound
	}
	if kind == model.NotificationMarketOpen {
		sub.MarketOpenNotify = enabled
	} else {
		sub.MarketCloseNotify = enabled
	}
	r.subs[phone] = sub
	return nil
}

type fakeCache struct {
	stocks []model.Stock
}

func (c *fakeCache) GetStocks(_ context.Context) ([]model.Stock, error) {
	return c.stocks, nil
}

type fakeCatalogFile struct {
	snap model.CatalogSnapshot
}

func (f *fakeCatalogFile) Load(_ context.Context) (model.CatalogSnapshot, error) {
	return f.snap, nil
}

func stockList(names ...string) []model.Stock {
	stocks := make([]model.Stock, 0, len(names))
	for i, name := range names {
		stocks = append(stocks, model.Stock{Name: name, Price: decimal.NewFromFloat(15.5).Add(decimal.NewFromInt(int64(i)))})
	}
	return stocks
}

func newService(repo *fakeRepo, stocks []model.Stock) *USSDService {
	cfg := &config.Config{StocksMenuLimit: 10}
	return New(cfg, repo, &fakeCache{stocks: stocks}, &fakeCatalogFile{})
}

const phone = "+254700000001"

func TestMainMenu(t *testing.T) {
	svc := newService(newFakeRepo(), stockList("Safaricom", "KCB Group"))

	resp := svc.HandleSession(context.Background(), phone, "")

	if !resp.Continue {
		t.Fatal("main menu must keep the session open")
	}
	want := "Welcome to Share Price Tracker!\n1. Subscribe\n2. View Stocks\n3. My Subscriptions\n4. Unsubscribe"
	if resp.Text != want {
		t.Errorf("main menu text = %q, want %q", resp.Text, want)
	}
}

func TestSubscribeCreatesSubscriberOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, stockList("Safaricom", "KCB Group"))
	ctx := context.Background()

	resp := svc.HandleSession(ctx, phone, "1")
	if !resp.Continue {
		t.Fatalf("first subscribe should continue, got END %q", resp.Text)
	}
	if !strings.HasPrefix(resp.Text, "You have successfully subscribed!") {
		t.Errorf("unexpected subscribe text: %q", resp.Text)
	}
	if repo.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", repo.inserts)
	}

	// dialing "1" again must terminate without touching the store
	resp = svc.HandleSession(ctx, phone, "1")
	if resp.Continue {
		t.Error("repeat subscribe should end the session")
	}
	want := "You are already subscribed! Choose '3' to manage your subscriptions."
	if resp.Text != want {
		t.Errorf("repeat subscribe text = %q, want %q", resp.Text, want)
	}
	if repo.inserts != 1 {
		t.Errorf("inserts = %d after repeat, want 1", repo.inserts)
	}
}

func TestCatalogDisplayCap(t *testing.T) {
	repo := newFakeRepo()
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	svc := newService(repo, stockList(names...))
	ctx := context.Background()

	resp := svc.HandleSession(ctx, phone, "1")
	if strings.Contains(resp.Text, "11. K") || strings.Contains(resp.Text, "12. L") {
		t.Errorf("menu should show only the first 10 stocks, got %q", resp.Text)
	}

	// indexes beyond the displayed window are rejected, recoverably
	for _, path := range []string{"1*11", "1*12"} {
		resp = svc.HandleSession(ctx, phone, path)
		if !resp.Continue {
			t.Errorf("HandleSession(%q) ended the session", path)
		}
		if !strings.HasPrefix(resp.Text, "Invalid input.") {
			t.Errorf("HandleSession(%q) = %q, want inline invalid-input re-render", path, resp.Text)
		}
	}

	// index 10 is still selectable
	resp = svc.HandleSession(ctx, phone, "1*10")
	if !strings.HasPrefix(resp.Text, "Successfully subscribed to J.") {
		t.Errorf("picking stock 10 = %q", resp.Text)
	}
}

func TestSubscriptionDedupe(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, stockList("Safaricom", "KCB Group"))
	ctx := context.Background()

	svc.HandleSession(ctx, phone, "1")
	resp := svc.HandleSession(ctx, phone, "1*2")
	if !strings.HasPrefix(resp.Text, "Successfully subscribed to KCB Group.") {
		t.Fatalf("first pick = %q", resp.Text)
	}
	updates := repo.updateCalls

	// re-subscribing the same stock from the manage flow must not mutate
	resp = svc.HandleSession(ctx, phone, "3*1*add*2")
	if !strings.HasPrefix(resp.Text, "You are already subscribed to KCB Group.") {
		t.Errorf("re-subscribe text = %q", resp.Text)
	}
	if repo.updateCalls != updates {
		t.Errorf("updateCalls = %d, want %d (no mutation on duplicate)", repo.updateCalls, updates)
	}
	if got := repo.subs[phone].Stocks; len(got) != 1 || got[0] != "KCB Group" {
		t.Errorf("stored stocks = %v, want [KCB Group]", got)
	}
}

func TestRemoveOutOfRangeIsRecoverable(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[phone] = model.Subscriber{PhoneNumber: phone, Stocks: []string{"Safaricom", "KCB Group"}}
	svc := newService(repo, stockList("Safaricom", "KCB Group"))

	resp := svc.HandleSession(context.Background(), phone, "3*1*5")

	if !resp.Continue {
		t.Fatal("out-of-range removal must not end the session")
	}
	if !strings.HasPrefix(resp.Text, "Invalid input.") {
		t.Errorf("want inline error, got %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "1. Safaricom") || !strings.Contains(resp.Text, "2. KCB Group") {
		t.Errorf("subscriptions should be re-listed unchanged, got %q", resp.Text)
	}
	if len(repo.subs[phone].Stocks) != 2 {
		t.Errorf("stocks mutated: %v", repo.subs[phone].Stocks)
	}
}

func TestRemoveSubscription(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[phone] = model.Subscriber{PhoneNumber: phone, Stocks: []string{"Safaricom", "KCB Group"}}
	svc := newService(repo, stockList("Safaricom", "KCB Group"))

	resp := svc.HandleSession(context.Background(), phone, "3*1*1")

	if !strings.HasPrefix(resp.Text, "Removed Safaricom from your subscriptions.") {
		t.Errorf("removal text = %q", resp.Text)
	}
	if got := repo.subs[phone].Stocks; len(got) != 1 || got[0] != "KCB Group" {
		t.Errorf("stocks after removal = %v, want [KCB Group]", got)
	}
}

func TestTogglePreferenceRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[phone] = model.Subscriber{PhoneNumber: phone}
	svc := newService(repo, stockList("Safaricom"))
	ctx := context.Background()

	resp := svc.HandleSession(ctx, phone, "3*2*1")
	if !strings.Contains(resp.Text, "1. Market Open: ON") {
		t.Errorf("after first toggle: %q", resp.Text)
	}
	if !repo.subs[phone].MarketOpenNotify {
		t.Error("flag should be on after first toggle")
	}

	resp = svc.HandleSession(ctx, phone, "3*2*1*1")
	if !strings.Contains(resp.Text, "1. Market Open: OFF") {
		t.Errorf("after second toggle: %q", resp.Text)
	}
	if repo.subs[phone].MarketOpenNotify {
		t.Error("flag should be off after second toggle")
	}
	if repo.subs[phone].MarketCloseNotify {
		t.Error("close flag must be untouched")
	}
}

func TestEndToEndSubscribeSequence(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, stockList("Safaricom", "KCB Group", "Equity Group"))
	ctx := context.Background()

	steps := []struct {
		path       string
		wantPrefix string
		wantCont   bool
	}{
		{"", "Welcome to Share Price Tracker!", true},
		{"1", "You have successfully subscribed!", true},
		{"1*1", "Successfully subscribed to Safaricom.", true},
		{"1*1*1", "Available Stocks:", true},
		{"1*1*1*2", "Successfully subscribed to KCB Group.", true},
		{"3", "My Subscriptions:", true},
		{"3*1", "Your current subscriptions:", true},
	}

	for _, step := range steps {
		resp := svc.HandleSession(ctx, phone, step.path)
		if resp.Continue != step.wantCont {
			t.Fatalf("HandleSession(%q).Continue = %v, want %v", step.path, resp.Continue, step.wantCont)
		}
		if !strings.HasPrefix(resp.Text, step.wantPrefix) {
			t.Fatalf("HandleSession(%q) = %q, want prefix %q", step.path, resp.Text, step.wantPrefix)
		}
	}

	if got := repo.subs[phone].Stocks; len(got) != 2 || got[0] != "Safaricom" || got[1] != "KCB Group" {
		t.Errorf("final stocks = %v", got)
	}
}

func TestViewStockDetail(t *testing.T) {
	svc := newService(newFakeRepo(), stockList("Safaricom"))

	// viewing works without a subscription and ends the session
	resp := svc.HandleSession(context.Background(), phone, "2*1")
	if resp.Continue {
		t.Error("stock detail is terminal")
	}
	want := "Safaricom: Ksh 15.50\nData in real-time."
	if resp.Text != want {
		t.Errorf("detail = %q, want %q", resp.Text, want)
	}
}

func TestMissingSubscriberPaths(t *testing.T) {
	svc := newService(newFakeRepo(), stockList("Safaricom"))
	ctx := context.Background()

	tests := []struct {
		path string
		want string
	}{
		{"3", "You are not subscribed. Dial again and select '1' to subscribe."},
		{"3*1", "Error: Subscriber not found. Please re-subscribe."},
		{"3*2", "Error: Subscriber not found. Please re-subscribe."},
	}

	for _, tt := range tests {
		resp := svc.HandleSession(ctx, phone, tt.path)
		if resp.Continue {
			t.Errorf("HandleSession(%q) should end the session", tt.path)
		}
		if resp.Text != tt.want {
			t.Errorf("HandleSession(%q) = %q, want %q", tt.path, resp.Text, tt.want)
		}
	}
}

func TestEmptyCatalog(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, nil)
	ctx := context.Background()

	want := "No stock data available at the moment. Please try again later."

	resp := svc.HandleSession(ctx, phone, "1")
	if resp.Continue || resp.Text != want {
		t.Errorf("subscribe with empty catalog = (%v, %q)", resp.Continue, resp.Text)
	}
	// the subscriber record is still created
	if _, ok := repo.subs[phone]; !ok {
		t.Error("subscriber should be created even without stock data")
	}

	resp = svc.HandleSession(ctx, phone, "2")
	if resp.Continue || resp.Text != want {
		t.Errorf("view with empty catalog = (%v, %q)", resp.Continue, resp.Text)
	}
}

func TestStoreFailureIsGenericTerminal(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true
	svc := newService(repo, stockList("Safaricom"))

	resp := svc.HandleSession(context.Background(), phone, "3")
	if resp.Continue {
		t.Error("store failure must end the session")
	}
	if resp.Text != "Something went wrong. Please try again later." {
		t.Errorf("store failure text = %q", resp.Text)
	}
}

func TestUnsubscribe(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[phone] = model.Subscriber{PhoneNumber: phone, Stocks: []string{"Safaricom"}}
	svc := newService(repo, stockList("Safaricom"))

	resp := svc.HandleSession(context.Background(), phone, "4")
	if resp.Continue {
		t.Error("unsubscribe is terminal")
	}
	if resp.Text != "You have successfully unsubscribed from Share Price Tracker. Goodbye!" {
		t.Errorf("unsubscribe text = %q", resp.Text)
	}
	if _, ok := repo.subs[phone]; ok {
		t.Error("subscriber record should be gone")
	}
}

func TestUnknownMainOptionIsTerminal(t *testing.T) {
	svc := newService(newFakeRepo(), stockList("Safaricom"))

	for _, path := range []string{"9", "abc", "4*1"} {
		resp := svc.HandleSession(context.Background(), phone, path)
		if resp.Continue {
			t.Errorf("HandleSession(%q) should end the session", path)
		}
		if resp.Text != "Invalid input. Please try again." {
			t.Errorf("HandleSession(%q) = %q", path, resp.Text)
		}
	}
}
