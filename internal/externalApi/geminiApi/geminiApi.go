package geminiApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

const cleaningPrompt = `You are a data cleaning assistant. Below is a JSON list of stock
entries scraped from a market overview table. Names may contain tickers,
footnotes or extra whitespace; prices may contain currency suffixes and
thousands separators.

Return ONLY a JSON array of objects with exactly two fields:
"name" (the clean company name) and "price" (the price as a plain number).
Drop entries without a usable price. No markdown, no commentary.

Raw data:
%s`

type GeminiApi struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg *config.Config) (*GeminiApi, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiApi{client: client, model: cfg.Gemini.Model}, nil
}

// CleanStockData normalizes raw scraped rows into the catalog format. The
// model response is free text, so the JSON array is cut out between the
// first '[' and the last ']' before unmarshalling.
func (g *GeminiApi) CleanStockData(ctx context.Context, raw []model.RawStockEntry) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GeminiApi.CleanStockData"

	slog.Debug("CleanStockData start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("entries", len(raw)))

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw entries: %w", err)
	}

	prompt := fmt.Sprintf(cleaningPrompt, string(rawJSON))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		slog.Error("gemini request failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		return nil, externalApi.ErrEmptyResponse
	}

	jsonArr, err := ExtractJSONArray(text)
	if err != nil {
		slog.Error("gemini response had no JSON array", slog.String("rqID", rqID), slog.String("op", op), slog.String("response", text))
		return nil, err
	}

	var stocks []model.Stock
	if err = json.Unmarshal([]byte(jsonArr), &stocks); err != nil {
		slog.Error("can't unmarshall cleaned stocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("CleanStockData finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("stocks", len(stocks)))

	return stocks, nil
}

// ExtractJSONArray cuts the substring between the first '[' and the last ']'.
func ExtractJSONArray(s string) (string, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return s[start : end+1], nil
}
