package africasTalkingApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type AfricasTalkingApi struct {
	client   *resty.Client
	username string
	senderID string
}

func New(cfg *config.Config) *AfricasTalkingApi {
	client := resty.New().
		SetDebug(cfg.AfricasTalking.Debug).
		SetTimeout(cfg.AfricasTalking.Timeout).
		SetBaseURL(cfg.AfricasTalking.BaseURL).
		SetHeader("apiKey", cfg.AfricasTalking.APIKey).
		SetHeader("Accept", "application/json")
	return &AfricasTalkingApi{
		client:   client,
		username: cfg.AfricasTalking.Username,
		senderID: cfg.AfricasTalking.SenderID,
	}
}

type smsResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number string `json:"number"`
			Status string `json:"status"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (a *AfricasTalkingApi) SendSMS(ctx context.Context, to, message string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/version1/messaging"

	form := map[string]string{
		"username": a.username,
		"to":       to,
		"message":  message,
	}
	if a.senderID != "" {
		form["from"] = a.senderID
	}

	slog.Debug("start AfricasTalkingApi.SendSMS request", slog.String("rqID", rqID), slog.String("to", to))

	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(url)

	if err != nil {
		slog.Error("error while dialing AfricasTalkingApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return err
	}

	if resp.IsError() {
		slog.Error(
			"AfricasTalkingApi returned error status",
			slog.String("rqID", rqID),
			slog.Int("status", resp.StatusCode()),
			slog.String("body", resp.String()),
		)
		return fmt.Errorf("%w: status %d", externalApi.ErrSendFailed, resp.StatusCode())
	}

	smsResp := smsResponse{}
	if err = json.Unmarshal(resp.Body(), &smsResp); err != nil {
		slog.Error("can't unmarshall AfricasTalkingApi response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return err
	}

	for _, recipient := range smsResp.SMSMessageData.Recipients {
		if recipient.Status != "Success" {
			slog.Error(
				"sms rejected for recipient",
				slog.String("rqID", rqID),
				slog.String("number", recipient.Number),
				slog.String("status", recipient.Status),
			)
			return fmt.Errorf("%w: recipient status %s", externalApi.ErrSendFailed, recipient.Status)
		}
	}

	slog.Debug("AfricasTalkingApi.SendSMS request complete", slog.String("rqID", rqID))

	return nil
}
