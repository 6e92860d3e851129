// Package catalog persists the cleaned stock price snapshot to a JSON file.
// The file is regenerated by the scheduler and read by the USSD service, so
// readers must tolerate it being missing or half-written.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing, empty or corrupt file yields an empty
// snapshot and no error: the menus degrade to "no stock data" instead of
// failing the session.
func (f *FileStore) Load(ctx context.Context) (model.CatalogSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("catalog file absent", slog.String("rqID", rqID), slog.String("path", f.path))
			return model.CatalogSnapshot{}, nil
		}
		slog.Error("catalog file read failed", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return model.CatalogSnapshot{}, err
	}

	if len(raw) == 0 {
		return model.CatalogSnapshot{}, nil
	}

	snap := model.CatalogSnapshot{}
	if err := json.Unmarshal(raw, &snap); err == nil && snap.Stocks != nil {
		return snap, nil
	}

	// older format: a bare list of stocks
	var stocks []model.Stock
	if err := json.Unmarshal(raw, &stocks); err != nil {
		slog.Warn("catalog file corrupt, treating as empty", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return model.CatalogSnapshot{}, nil
	}

	return model.CatalogSnapshot{Stocks: stocks}, nil
}

func (f *FileStore) Save(ctx context.Context, snap model.CatalogSnapshot) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		slog.Error("catalog file write failed", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("catalog file saved", slog.String("rqID", rqID), slog.String("path", f.path), slog.Int("stocks", len(snap.Stocks)))
	return nil
}
