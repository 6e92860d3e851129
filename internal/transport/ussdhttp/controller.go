package ussdhttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/tkmaina/ussd_stock_tracker/internal/model"
	"github.com/tkmaina/ussd_stock_tracker/utils"
)

type USSDService interface {
	HandleSession(ctx context.Context, phoneNumber, path string) model.USSDResponse
}

type Controller struct {
	service USSDService
}

func NewController(service USSDService) *Controller {
	return &Controller{service: service}
}

// HandleUSSD is the gateway callback. The gateway POSTs form fields
// sessionId, serviceCode, phoneNumber and text (the full "*"-joined input
// path so far) and expects plain text prefixed with CON or END.
func (ctrl *Controller) HandleUSSD(w http.ResponseWriter, r *http.Request) {
	ctx := utils.CreateCtxWithRqID(r.Context())
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := r.ParseForm(); err != nil {
		slog.Error("ussd form parse failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sessionID := r.FormValue("sessionId")
	phoneNumber := r.FormValue("phoneNumber")
	path := r.FormValue("text")

	slog.Info(
		"ussd request",
		slog.String("rqID", rqID),
		slog.String("sessionID", sessionID),
		slog.String("phone", phoneNumber),
		slog.String("text", path),
	)

	resp := ctrl.service.HandleSession(ctx, phoneNumber, path)

	w.Header().Set("Content-Type", "text/plain")
	prefix := "END "
	if resp.Continue {
		prefix = "CON "
	}
	_, _ = io.WriteString(w, prefix+resp.Text)
}
