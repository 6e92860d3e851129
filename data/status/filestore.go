// Package status persists the scheduler cursor: when each notification kind
// last went out and when the last scrape ran.
package status

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

// Load returns a zero status when the file is missing or unreadable, so a
// lost cursor only risks one duplicate notification, never a crash.
func (f *FileStore) Load(ctx context.Context) (model.SchedulerStatus, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.SchedulerStatus{}, nil
		}
		slog.Error("status file read failed", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return model.SchedulerStatus{}, err
	}

	st := model.SchedulerStatus{}
	if err := json.Unmarshal(raw, &st); err != nil {
		slog.Warn("status file corrupt, starting fresh", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return model.SchedulerStatus{}, nil
	}

	return st, nil
}

func (f *FileStore) Save(ctx context.Context, st model.SchedulerStatus) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		slog.Error("status file write failed", slog.String("rqID", rqID), slog.String("path", f.path), slog.String("err", err.Error()))
		return err
	}

	return nil
}
