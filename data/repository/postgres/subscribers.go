package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/tkmaina/ussd_stock_tracker/data/repository"
	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type dbSubscriber struct {
	PhoneNumber       string `db:"phone_number"`
	SubscribedStocks  []byte `db:"subscribed_stocks"`
	MarketOpenNotify  bool   `db:"market_open_notify"`
	MarketCloseNotify bool   `db:"market_close_notify"`
}

func (s dbSubscriber) toModel() (model.Subscriber, error) {
	sub := model.Subscriber{
		PhoneNumber:       s.PhoneNumber,
		MarketOpenNotify:  s.MarketOpenNotify,
		MarketCloseNotify: s.MarketCloseNotify,
	}
	if len(s.SubscribedStocks) > 0 {
		if err := json.Unmarshal(s.SubscribedStocks, &sub.Stocks); err != nil {
			return model.Subscriber{}, fmt.Errorf("unmarshal subscribed_stocks: %w", err)
		}
	}
	return sub, nil
}

func (r *Postgres) InsertSubscriber(ctx context.Context, phoneNumber string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO subscribers(phone_number) VALUES($1)`

	slog.Debug("InsertSubscriber start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertSubscriber failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertSubscriber completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, phoneNumber)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) GetSubscriber(ctx context.Context, phoneNumber string) (sub model.Subscriber, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT phone_number, subscribed_stocks, market_open_notify, market_close_notify
		FROM subscribers
		WHERE phone_number = $1
		`

	slog.Debug("GetSubscriber start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetSubscriber failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSubscriber completed", slog.String("rqID", rqID))
		}
	}()

	dbSub := dbSubscriber{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, phoneNumber).StructScan(&dbSub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Subscriber{}, repository.ErrNotFound
		}
		return model.Subscriber{}, err
	}

	return dbSub.toModel()
}

func (r *Postgres) DeleteSubscriber(ctx context.Context, phoneNumber string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM subscribers WHERE phone_number = $1`

	slog.Debug("DeleteSubscriber start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteSubscriber failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteSubscriber completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, phoneNumber)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) UpdateSubscribedStocks(ctx context.Context, phoneNumber string, stocks []string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateSubscribedStocks"
	query := `UPDATE subscribers SET subscribed_stocks = $1 WHERE phone_number = $2`

	slog.Debug(
		"UpdateSubscribedStocks start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("query", query),
		slog.Any("stocks", stocks),
	)
	defer func() {
		if err != nil {
			slog.Error("UpdateSubscribedStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateSubscribedStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if stocks == nil {
		stocks = []string{}
	}
	stocksJSON, err := json.Marshal(stocks)
	if err != nil {
		return fmt.Errorf("marshal subscribed_stocks: %w", err)
	}

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, stocksJSON, phoneNumber)
	if err != nil {
		return err
	}

	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) UpdateNotificationPreference(ctx context.Context, phoneNumber string, kind model.NotificationKind, enabled bool) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateNotificationPreference"

	// column is whitelisted, never interpolated from input
	var column string
	switch kind {
	case model.NotificationMarketOpen:
		column = "market_open_notify"
	case model.NotificationMarketClose:
		column = "market_close_notify"
	default:
		return fmt.Errorf("unknown notification kind: %s", kind)
	}

	query := fmt.Sprintf(`UPDATE subscribers SET %s = $1 WHERE phone_number = $2`, column)

	slog.Debug(
		"UpdateNotificationPreference start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("query", query),
		slog.Bool("enabled", enabled),
	)
	defer func() {
		if err != nil {
			slog.Error("UpdateNotificationPreference failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateNotificationPreference completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, enabled, phoneNumber)
	if err != nil {
		return err
	}

	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) GetAllSubscribers(ctx context.Context) (subs []model.Subscriber, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAllSubscribers"
	query := `
		SELECT phone_number, subscribed_stocks, market_open_notify, market_close_notify
		FROM subscribers
		ORDER BY phone_number
		`

	slog.Debug("GetAllSubscribers start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAllSubscribers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAllSubscribers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbSub dbSubscriber
		err = rows.StructScan(&dbSub)
		if err != nil {
			return nil, err
		}
		sub, convErr := dbSub.toModel()
		if convErr != nil {
			err = convErr
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, nil
}
