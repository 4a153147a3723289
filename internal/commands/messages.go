package commands

import (
	"crypto-oracle-bot/internal/ai"
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/price"
	"crypto-oracle-bot/internal/report"
	"crypto-oracle-bot/lib/helpers"
	"crypto-oracle-bot/lib/translation"
	"fmt"
	"github.com/pkg/errors"
	"strings"
)

// UserError turns an error into a short actionable reply without upstream details
func UserError(err error) string {
	var text string
	switch {
	case errors.Is(err, price.ErrNotFound):
		text = translation.Translate("Coin not found, please check the symbol.")
	case errors.Is(err, alert.ErrInvalidPrice):
		text = translation.Translate("The target price must be greater than zero.")
	case errors.Is(err, alert.ErrInvalidCondition):
		text = translation.Translate("The condition must be above or below.")
	case errors.Is(err, alert.ErrNoAlert):
		text = translation.Translate("You have no alert for this symbol.")
	case errors.Is(err, report.ErrNoMarketData):
		text = translation.Translate("Market data is not available right now, please try again later.")
	case errors.Is(err, ai.ErrUnavailable):
		text = translation.Translate("AI analysis is not available.")
	default:
		text = translation.Translate("Something went wrong, please try again later.")
	}
	return helpers.EscapeMarkdownV2(text)
}

// HelpText lists the available commands
func HelpText() string {
	return helpers.EscapeMarkdownV2(translation.Translate("Available commands:\n" +
		"/p <symbol> - current price\n" +
		"/alert set <symbol> <price> [above|below] - notify me when the price is reached\n" +
		"/alert list - my alerts\n" +
		"/alert remove <symbol> - delete an alert\n" +
		"/dailyreport - send the market report to this chat now\n" +
		"/source - where the data comes from"))
}

// SourceText credits the data providers
func SourceText() string {
	return helpers.EscapeMarkdownV2(translation.Translate("Market data: https://coinpaprika.com"))
}

// ReportCaption is the short headline used for the chart photo
func ReportCaption(r report.Report) string {
	return fmt.Sprintf("📊 *%s*\n%s",
		helpers.EscapeMarkdownV2(translation.Translate(r.Title)),
		helpers.EscapeMarkdownV2(r.GeneratedAt.Format("Monday, January 2, 2006 15:04 MST")),
	)
}

// ReportText renders the full market report
func ReportText(r report.Report) string {
	var b strings.Builder
	b.WriteString(ReportCaption(r))
	b.WriteString("\n\n*" + helpers.EscapeMarkdownV2(translation.Translate("Top movers (24h)")) + "*\n")
	for i, t := range r.Movers {
		fmt.Fprintf(&b, "%d\\. *%s* `$%s` %s\n",
			i+1,
			helpers.EscapeMarkdownV2(strings.ToUpper(t.Symbol)),
			helpers.FormatPriceUS(t.Quote.Price, false),
			helpers.FormatChange(t.Quote.Change24h, true),
		)
	}

	b.WriteString("\n🤖 *" + helpers.EscapeMarkdownV2(translation.Translate("Market analysis")) + "*\n")
	summary := r.Summary
	if r.Degraded {
		summary = translation.Translate(report.SummaryUnavailable)
	}
	b.WriteString(helpers.EscapeMarkdownV2(summary))
	return b.String()
}
