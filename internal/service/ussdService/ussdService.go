package ussdService

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/data/repository"
	"github.com/tkmaina/ussd_stock_tracker/internal/converter/ussdConverter"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/internal/ussd"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type Repository interface {
	GetSubscriber(ctx context.Context, phoneNumber string) (model.Subscriber, error)
	InsertSubscriber(ctx context.Context, phoneNumber string) error
	DeleteSubscriber(ctx context.Context, phoneNumber string) error
	UpdateSubscribedStocks(ctx context.Context, phoneNumber string, stocks []string) error
	UpdateNotificationPreference(ctx context.Context, phoneNumber string, kind model.NotificationKind, enabled bool) error
}

type CatalogCache interface {
	GetStocks(ctx context.Context) ([]model.Stock, error)
}

type CatalogFile interface {
	Load(ctx context.Context) (model.CatalogSnapshot, error)
}

type USSDService struct {
	cfg         *config.Config
	repo        Repository
	cache       CatalogCache
	catalogFile CatalogFile
}

func New(cfg *config.Config, repo Repository, cache CatalogCache, catalogFile CatalogFile) *USSDService {
	return &USSDService{cfg: cfg, repo: repo, cache: cache, catalogFile: catalogFile}
}

// HandleSession resolves the replayed input path to a menu state and acts on
// it. The gateway resends the whole path each request, so earlier tokens had
// their side effects in their own requests already. Only the final state's
// action runs here.
func (s *USSDService) HandleSession(ctx context.Context, phoneNumber, path string) model.USSDResponse {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "USSDService.HandleSession"

	slog.Debug("HandleSession start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))

	stocks := s.displayedCatalog(ctx)

	sub, err := s.repo.GetSubscriber(ctx, phoneNumber)
	hasSub := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("HandleSession subscriber lookup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ussdConverter.InternalError()
	}
	sub.PhoneNumber = phoneNumber

	env := ussd.Env{CatalogSize: len(stocks), SubscriptionSize: len(sub.Stocks)}
	sess := ussd.Resolve(path, env)

	resp := s.act(ctx, sess, path, sub, hasSub, stocks)

	slog.Debug(
		"HandleSession finished",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Bool("continue", resp.Continue),
	)

	return resp
}

func (s *USSDService) act(ctx context.Context, sess ussd.Session, path string, sub model.Subscriber, hasSub bool, stocks []model.Stock) model.USSDResponse {
	switch sess.State {
	case ussd.StateMainMenu:
		return ussdConverter.MainMenu()

	case ussd.StateSubscribeStockList:
		// the bare "1" request creates the subscriber; deeper paths under
		// "1*" arrive from replays where it already exists
		if path == "1" {
			if hasSub {
				return ussdConverter.AlreadySubscribedUser()
			}
			if err := s.repo.InsertSubscriber(ctx, sub.PhoneNumber); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
				return ussdConverter.InternalError()
			}
			if len(stocks) == 0 {
				return ussdConverter.NoStockData()
			}
			return ussdConverter.SubscribeWelcome(stocks)
		}
		if !hasSub {
			return ussdConverter.NotSubscribed()
		}
		if len(stocks) == 0 {
			return ussdConverter.NoStockData()
		}
		return ussdConverter.StockMenu(stocks, sess.BadInput)

	case ussd.StateStockSubscribed, ussd.StateStockAdded:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		name, ok := stockName(stocks, sess.Catalog)
		if !ok {
			return ussdConverter.NoStockData()
		}
		return s.subscribeStock(ctx, sub, name)

	case ussd.StateViewStocksList:
		if len(stocks) == 0 {
			return ussdConverter.NoStockData()
		}
		return ussdConverter.StockMenu(stocks, sess.BadInput)

	case ussd.StateViewStockDetail:
		if int(sess.Catalog) > len(stocks) {
			return ussdConverter.NoStockData()
		}
		return ussdConverter.StockDetail(stocks[sess.Catalog-1])

	case ussd.StateMySubscriptions:
		if !hasSub {
			return ussdConverter.NotSubscribed()
		}
		return ussdConverter.MySubscriptions()

	case ussd.StateManageSubscriptions:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		return ussdConverter.ManageSubscriptions(sub.Stocks, sess.BadInput)

	case ussd.StateAddStockList:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		if len(stocks) == 0 {
			return ussdConverter.NoStockData()
		}
		return ussdConverter.StockMenu(stocks, sess.BadInput)

	case ussd.StateRemoveSubscription:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		return s.removeSubscription(ctx, sub, sess.Subscription)

	case ussd.StateNotificationPrefs:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		return ussdConverter.NotificationPrefs(sub.MarketOpenNotify, sub.MarketCloseNotify, sess.BadInput)

	case ussd.StateTogglePreference:
		if !hasSub {
			return ussdConverter.SubscriberNotFound()
		}
		return s.togglePreference(ctx, sub, sess)

	case ussd.StateUnsubscribed:
		if err := s.repo.DeleteSubscriber(ctx, sub.PhoneNumber); err != nil {
			return ussdConverter.InternalError()
		}
		return ussdConverter.Unsubscribed()
	}

	return ussdConverter.InvalidInput()
}

// subscribeStock appends the stock unless it is already on the list.
// Re-subscribing is a pure no-op on the store, only the text differs.
func (s *USSDService) subscribeStock(ctx context.Context, sub model.Subscriber, name string) model.USSDResponse {
	if slices.Contains(sub.Stocks, name) {
		return ussdConverter.StockSubscribed(name, true)
	}

	updated := append(slices.Clone(sub.Stocks), name)
	if err := s.repo.UpdateSubscribedStocks(ctx, sub.PhoneNumber, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ussdConverter.SubscriberNotFound()
		}
		return ussdConverter.InternalError()
	}

	return ussdConverter.StockSubscribed(name, false)
}

func (s *USSDService) removeSubscription(ctx context.Context, sub model.Subscriber, idx ussd.SubscriptionIndex) model.USSDResponse {
	if int(idx) < 1 || int(idx) > len(sub.Stocks) {
		return ussdConverter.ManageSubscriptions(sub.Stocks, true)
	}

	removed := sub.Stocks[idx-1]
	updated := append(slices.Clone(sub.Stocks[:idx-1]), sub.Stocks[idx:]...)
	if err := s.repo.UpdateSubscribedStocks(ctx, sub.PhoneNumber, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ussdConverter.SubscriberNotFound()
		}
		return ussdConverter.InternalError()
	}

	return ussdConverter.StockRemoved(removed)
}

func (s *USSDService) togglePreference(ctx context.Context, sub model.Subscriber, sess ussd.Session) model.USSDResponse {
	var kind model.NotificationKind
	var enabled bool

	switch sess.Pref {
	case ussd.PrefOpen:
		kind = model.NotificationMarketOpen
		enabled = !sub.MarketOpenNotify
		sub.MarketOpenNotify = enabled
	case ussd.PrefClose:
		kind = model.NotificationMarketClose
		enabled = !sub.MarketCloseNotify
		sub.MarketCloseNotify = enabled
	default:
		return ussdConverter.NotificationPrefs(sub.MarketOpenNotify, sub.MarketCloseNotify, true)
	}

	if err := s.repo.UpdateNotificationPreference(ctx, sub.PhoneNumber, kind, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ussdConverter.SubscriberNotFound()
		}
		return ussdConverter.InternalError()
	}

	return ussdConverter.NotificationPrefs(sub.MarketOpenNotify, sub.MarketCloseNotify, false)
}

// displayedCatalog returns the menu window: cache first, snapshot file as
// fallback, capped to the configured menu size. Failures degrade to an empty
// catalog rather than breaking the session.
func (s *USSDService) displayedCatalog(ctx context.Context) []model.Stock {
	rqID := utils.GetRequestIDFromCtx(ctx)

	stocks, err := s.cache.GetStocks(ctx)
	if err != nil || len(stocks) == 0 {
		snap, loadErr := s.catalogFile.Load(ctx)
		if loadErr != nil {
			slog.Warn("catalog unavailable", slog.String("rqID", rqID), slog.String("err", loadErr.Error()))
			return nil
		}
		stocks = snap.Stocks
	}

	if len(stocks) > s.cfg.StocksMenuLimit {
		stocks = stocks[:s.cfg.StocksMenuLimit]
	}
	return stocks
}

func stockName(stocks []model.Stock, idx ussd.CatalogIndex) (string, bool) {
	if int(idx) < 1 || int(idx) > len(stocks) {
		return "", false
	}
	return stocks[idx-1].Name, true
}
