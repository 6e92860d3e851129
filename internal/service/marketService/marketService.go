package marketService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type Repository interface {
	GetAllSubscribers(ctx context.Context) ([]model.Subscriber, error)
}

type Scraper interface {
	ScrapeStocks(ctx context.Context) ([]model.RawStockEntry, error)
}

type Cleaner interface {
	CleanStockData(ctx context.Context, raw []model.RawStockEntry) ([]model.Stock, error)
}

type CatalogCache interface {
	SetStocks(ctx context.Context, stocks []model.Stock) error
}

type CatalogFile interface {
	Load(ctx context.Context) (model.CatalogSnapshot, error)
	Save(ctx context.Context, snap model.CatalogSnapshot) error
}

type StatusStore interface {
	Load(ctx context.Context) (model.SchedulerStatus, error)
	Save(ctx context.Context, st model.SchedulerStatus) error
}

type SMSApi interface {
	SendSMS(ctx context.Context, to, message string) error
}

type MarketService struct {
	cfg         *config.Config
	repo        Repository
	scraper     Scraper
	cleaner     Cleaner
	cache       CatalogCache
	catalogFile CatalogFile
	statusStore StatusStore
	smsApi      SMSApi
	now         func() time.Time
}

func New(
	cfg *config.Config,
	repo Repository,
	scraper Scraper,
	cleaner Cleaner,
	cache CatalogCache,
	catalogFile CatalogFile,
	statusStore StatusStore,
	smsApi SMSApi,
) *MarketService {
	return &MarketService{
		cfg:         cfg,
		repo:        repo,
		scraper:     scraper,
		cleaner:     cleaner,
		cache:       cache,
		catalogFile: catalogFile,
		statusStore: statusStore,
		smsApi:      smsApi,
		now:         time.Now,
	}
}

// RefreshCatalogDuringMarketHours runs the scrape pipeline only on weekdays
// between market open and close (plus the close-minute buffer).
func (s *MarketService) RefreshCatalogDuringMarketHours(ctx context.Context) error {
	if !s.marketOpen(s.now()) {
		slog.Debug("market closed, skipping catalog refresh")
		return nil
	}
	return s.RefreshCatalog(ctx)
}

// RefreshCatalog scrapes the raw table, cleans it through the AI step and
// publishes the snapshot to the file and cache. An empty cleaning result
// leaves the previous snapshot untouched.
func (s *MarketService) RefreshCatalog(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.RefreshCatalog"

	slog.Debug("RefreshCatalog start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("RefreshCatalog failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RefreshCatalog finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	raw, err := s.scraper.ScrapeStocks(ctx)
	if err != nil {
		return fmt.Errorf("scrape stocks: %w", err)
	}
	if len(raw) == 0 {
		slog.Warn("scrape returned no rows, keeping previous snapshot", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	stocks, err := s.cleaner.CleanStockData(ctx, raw)
	if err != nil {
		return fmt.Errorf("clean stock data: %w", err)
	}
	if len(stocks) == 0 {
		slog.Warn("cleaning returned no stocks, keeping previous snapshot", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	scrapeTime := s.now()
	snap := model.CatalogSnapshot{Stocks: stocks, Timestamp: scrapeTime}

	if err = s.catalogFile.Save(ctx, snap); err != nil {
		return fmt.Errorf("save catalog snapshot: %w", err)
	}

	if cacheErr := s.cache.SetStocks(ctx, stocks); cacheErr != nil {
		// the file is the source of truth; a cold cache just costs a read
		slog.Warn("catalog cache update failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
	}

	st, stErr := s.statusStore.Load(ctx)
	if stErr == nil {
		st.LastScrapeTime = &scrapeTime
		if saveErr := s.statusStore.Save(ctx, st); saveErr != nil {
			slog.Warn("status update failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", saveErr.Error()))
		}
	}

	return nil
}

// SendMarketNotifications sends the open/close SMS batch for the given kind,
// at most once per calendar day. A failed send for one subscriber does not
// stop the batch, but the day is only marked done after the full pass.
func (s *MarketService) SendMarketNotifications(ctx context.Context, kind model.NotificationKind) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.SendMarketNotifications"

	slog.Debug("SendMarketNotifications start", slog.String("rqID", rqID), slog.String("op", op), slog.String("kind", string(kind)))
	defer func() {
		if err != nil {
			slog.Error("SendMarketNotifications failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SendMarketNotifications finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	st, err := s.statusStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}

	today := s.now().Format("2006-01-02")
	if st.LastNotificationSent[kind] == today {
		slog.Info("notifications already sent today", slog.String("rqID", rqID), slog.String("kind", string(kind)))
		return nil
	}

	snap, err := s.catalogFile.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog snapshot: %w", err)
	}
	if len(snap.Stocks) == 0 {
		slog.Warn("no stock data, skipping notification batch", slog.String("rqID", rqID), slog.String("kind", string(kind)))
		return nil
	}

	prices := make(map[string]decimal.Decimal, len(snap.Stocks))
	for _, stock := range snap.Stocks {
		prices[strings.ToLower(stock.Name)] = stock.Price
	}

	subs, err := s.repo.GetAllSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	sent := 0
	for _, sub := range subs {
		if !wantsKind(sub, kind) {
			continue
		}

		message := buildMessage(kind, sub.Stocks, prices)
		if sendErr := s.smsApi.SendSMS(ctx, sub.PhoneNumber, message); sendErr != nil {
			slog.Error(
				"sms send failed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("phone", sub.PhoneNumber),
				slog.String("err", sendErr.Error()),
			)
			continue
		}
		sent++
	}

	slog.Info("notification batch done", slog.String("rqID", rqID), slog.String("kind", string(kind)), slog.Int("sent", sent))

	if st.LastNotificationSent == nil {
		st.LastNotificationSent = make(map[model.NotificationKind]string)
	}
	st.LastNotificationSent[kind] = today
	if err = s.statusStore.Save(ctx, st); err != nil {
		return fmt.Errorf("save status: %w", err)
	}

	return nil
}

func wantsKind(sub model.Subscriber, kind model.NotificationKind) bool {
	switch kind {
	case model.NotificationMarketOpen:
		return sub.MarketOpenNotify
	case model.NotificationMarketClose:
		return sub.MarketCloseNotify
	}
	return false
}

func buildMessage(kind model.NotificationKind, stocks []string, prices map[string]decimal.Decimal) string {
	if len(stocks) == 0 {
		return fmt.Sprintf("Market %s update: No stocks selected for notifications. Dial USSD to select.", kind)
	}

	b := strings.Builder{}
	b.WriteString(header(kind))
	for _, name := range stocks {
		if price, ok := prices[strings.ToLower(name)]; ok {
			fmt.Fprintf(&b, "\n%s: Ksh %s", name, price.StringFixed(2))
		} else {
			fmt.Fprintf(&b, "\n%s: Price N/A", name)
		}
	}
	return b.String()
}

func header(kind model.NotificationKind) string {
	if kind == model.NotificationMarketClose {
		return "Market Close Update:"
	}
	return "Market Open Update:"
}

func (s *MarketService) marketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	hour, minute := t.Hour(), t.Minute()
	if hour < s.cfg.Market.OpenHour {
		return false
	}
	if hour > s.cfg.Market.CloseHour {
		return false
	}
	if hour == s.cfg.Market.CloseHour && minute > s.cfg.Market.CloseMinuteBuffer {
		return false
	}
	return true
}
