package notifier

import (
	"context"
	"log/slog"

	"SignalLab/internal/model"
)

// Alerts wraps a Notifier with the three pipeline message kinds. Delivery
// failures are logged and reported to OnFailure, never returned.
type Alerts struct {
	notifier  Notifier
	logger    *slog.Logger
	OnFailure func(kind string, err error)
}

// NewAlerts creates an Alerts sender. A nil notifier disables delivery.
func NewAlerts(n Notifier, logger *slog.Logger) *Alerts {
	if n == nil {
		n = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerts{notifier: n, logger: logger}
}

// PipelineStatus announces a pipeline lifecycle change for symbol.
func (a *Alerts) PipelineStatus(ctx context.Context, status, symbol string) {
	a.deliver(ctx, "status", FormatPipelineStatus(status, symbol))
}

// Trade announces one side of a trade.
func (a *Alerts) Trade(ctx context.Context, symbol string, action model.Action, price float64, date string) {
	a.deliver(ctx, "trade", FormatTradeAlert(symbol, action, price, date))
}

// Error announces a failure.
func (a *Alerts) Error(ctx context.Context, text string) {
	a.deliver(ctx, "error", FormatErrorAlert(text))
}

func (a *Alerts) deliver(ctx context.Context, kind, text string) {
	if err := a.notifier.Send(ctx, text); err != nil {
		a.logger.Error("alert delivery failed", "kind", kind, "error", err)
		if a.OnFailure != nil {
			a.OnFailure(kind, err)
		}
	}
}
