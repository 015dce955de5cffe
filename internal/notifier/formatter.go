package notifier

import (
	"fmt"
	"html"
	"strings"

	"SignalLab/internal/model"
)

// Pipeline status values.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusError     = "ERROR"
)

// FormatPipelineStatus formats a pipeline lifecycle message.
func FormatPipelineStatus(status, symbol string) string {
	return fmt.Sprintf("⚙️ <b>Pipeline %s</b> for <code>%s</code>", html.EscapeString(status), html.EscapeString(symbol))
}

// FormatTradeAlert formats a BUY or SELL alert for one side of a trade.
func FormatTradeAlert(symbol string, action model.Action, price float64, date string) string {
	icon := "🟢"
	if action == model.ActionSell {
		icon = "🔴"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>ALERT: %s Signal</b>\n", icon, html.EscapeString(string(action))))
	b.WriteString(fmt.Sprintf("Symbol: <code>%s</code>\n", html.EscapeString(symbol)))
	b.WriteString(fmt.Sprintf("Price: <code>%.2f</code>\n", price))
	b.WriteString(fmt.Sprintf("Date: <code>%s</code>", html.EscapeString(date)))
	return b.String()
}

// FormatErrorAlert formats a free-text error message.
func FormatErrorAlert(text string) string {
	return fmt.Sprintf("❌ <b>ERROR Occurred:</b>\n<pre>%s</pre>", html.EscapeString(text))
}

// HelpText lists the chat commands.
const HelpText = "🤖 <b>SignalLab</b>\n\n" +
	"/run [SYMBOL] - run the pipeline (all default symbols when omitted)\n" +
	"/status - recent runs\n" +
	"/trades RUN_ID - trades of a recorded run\n" +
	"/help - this message"
