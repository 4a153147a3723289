package helpers

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"strings"
	"time"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatPriceUS formats a USD price with thousands separators, small
// prices keep more decimals
func FormatPriceUS(price decimal.Decimal, escapeMarkdown bool) string {
	decimals := 6

	abs := price.Abs()
	if abs.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		decimals = 0
	} else if abs.GreaterThan(decimal.RequireFromString("1.2")) {
		decimals = 2
	} else if abs.LessThan(decimal.RequireFromString("0.00001")) && !abs.IsZero() {
		decimals = 8
	}

	f, _ := price.Round(int32(decimals)).Float64()
	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, f)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatChange renders a 24h change like "+2.50%", unknown values as "n/a"
func FormatChange(change decimal.NullDecimal, escapeMarkdown bool) string {
	formatted := "n/a"
	if change.Valid {
		formatted = change.Decimal.StringFixed(2) + "%"
		if !change.Decimal.IsNegative() {
			formatted = "+" + formatted
		}
	}
	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatAmountUS renders large amounts such as market cap, unknown values as "n/a"
func FormatAmountUS(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return "n/a"
	}
	f, _ := amount.Decimal.Round(0).Float64()
	return EscapeMarkdownV2(humanize.CommafWithDigits(f, 0))
}

// FormatAge renders how long ago t was, e.g. "3 days ago"
func FormatAge(t time.Time) string {
	return EscapeMarkdownV2(humanize.Time(t))
}
