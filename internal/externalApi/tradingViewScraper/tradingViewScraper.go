package tradingViewScraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

// TradingViewScraper pulls the raw stock table off the market-movers page
// with a headless browser. Output rows are uncleaned cell text; the AI
// cleaning step owns normalization.
type TradingViewScraper struct {
	cfg *config.Config
}

func New(cfg *config.Config) *TradingViewScraper {
	return &TradingViewScraper{cfg: cfg}
}

func (s *TradingViewScraper) ScrapeStocks(ctx context.Context) (entries []model.RawStockEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingViewScraper.ScrapeStocks"

	slog.Debug("ScrapeStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", s.cfg.Scraper.TargetURL))
	defer func() {
		if err != nil {
			slog.Error("ScrapeStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ScrapeStocks finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(entries)))
		}
	}()

	l := launcher.New().
		Headless(s.cfg.Scraper.Headless).
		Set("user-agent", s.cfg.Scraper.UserAgent)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			slog.Warn("browser close failed", slog.String("rqID", rqID), slog.String("err", closeErr.Error()))
		}
	}()

	scrapeCtx, cancel := context.WithTimeout(ctx, s.cfg.Scraper.Timeout)
	defer cancel()

	page, err := browser.Context(scrapeCtx).Page(proto.TargetCreateTarget{URL: s.cfg.Scraper.TargetURL})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err = page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	priceCol, err := s.findPriceColumn(page)
	if err != nil {
		return nil, err
	}

	rows, err := page.Elements("table tbody tr")
	if err != nil {
		return nil, fmt.Errorf("find table rows: %w", err)
	}

	for _, row := range rows {
		cells, cellsErr := row.Elements("td")
		if cellsErr != nil || len(cells) <= priceCol {
			continue
		}

		nameText, nameErr := cells[0].Text()
		priceText, priceErr := cells[priceCol].Text()
		if nameErr != nil || priceErr != nil {
			continue
		}

		// the name cell stacks ticker and company name on separate lines;
		// keep the whole thing, cleaning is not this layer's job
		name := strings.TrimSpace(nameText)
		price := strings.TrimSpace(priceText)
		if name == "" || price == "" {
			continue
		}

		entries = append(entries, model.RawStockEntry{Name: name, Price: price})
	}

	return entries, nil
}

// findPriceColumn locates the "Price" header; the table layout shifts
// between market pages.
func (s *TradingViewScraper) findPriceColumn(page *rod.Page) (int, error) {
	headers, err := page.Elements("table thead th")
	if err != nil {
		return 0, fmt.Errorf("find table headers: %w", err)
	}

	for i, header := range headers {
		text, textErr := header.Text()
		if textErr != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), "price") {
			return i, nil
		}
	}

	// default to the column right after the symbol
	return 1, nil
}
