package commands

import (
	"context"
	"crypto-oracle-bot/internal/types"
	"crypto-oracle-bot/lib/helpers"
	"crypto-oracle-bot/lib/translation"
	"fmt"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"strings"
)

// AlertManager is the alert command surface
type AlertManager interface {
	Set(ctx context.Context, userID, symbol string, target decimal.Decimal, condition types.Condition) (types.Alert, error)
	List(ctx context.Context, userID string) ([]types.Alert, error)
	Remove(ctx context.Context, userID, symbol string) error
}

func alertUsage() string {
	return helpers.EscapeMarkdownV2(translation.Translate(
		"Usage:\n/alert set <symbol> <price> [above|below]\n/alert list\n/alert remove <symbol>"))
}

// CommandAlert answers /alert set|list|remove for userID
func CommandAlert(ctx context.Context, m AlertManager, userID, arguments string) string {
	log.Debugf("processing command /alert with arguments :%s", arguments)

	args := strings.Fields(arguments)
	if len(args) == 0 {
		return alertUsage()
	}

	switch strings.ToLower(args[0]) {
	case "set":
		if len(args) < 3 || len(args) > 4 {
			return alertUsage()
		}
		target, err := decimal.NewFromString(strings.TrimPrefix(args[2], "$"))
		if err != nil {
			return helpers.EscapeMarkdownV2(translation.Translate("Invalid price %s", args[2]))
		}
		condition := types.Above
		if len(args) == 4 {
			if condition, err = types.ParseCondition(args[3]); err != nil {
				return alertUsage()
			}
		}

		a, err := m.Set(ctx, userID, args[1], target, condition)
		if err != nil {
			log.WithError(err).Warn("alert set failed")
			return UserError(err)
		}
		return alertSetText(a)

	case "list":
		alerts, err := m.List(ctx, userID)
		if err != nil {
			log.WithError(err).Error("alert list failed")
			return UserError(err)
		}
		return alertListText(alerts)

	case "remove", "delete":
		if len(args) != 2 {
			return alertUsage()
		}
		if err := m.Remove(ctx, userID, args[1]); err != nil {
			return UserError(err)
		}
		return helpers.EscapeMarkdownV2(translation.Translate("Alert for %s removed.", strings.ToUpper(args[1])))
	}

	return alertUsage()
}

func conditionWord(c types.Condition) string {
	if c == types.Below {
		return translation.Translate("below")
	}
	return translation.Translate("above")
}

func alertSetText(a types.Alert) string {
	return fmt.Sprintf("✅ %s\n\n*%s \\(%s\\)* %s `$%s`",
		helpers.EscapeMarkdownV2(translation.Translate("Alert set! You will get a message when the price is reached.")),
		helpers.EscapeMarkdownV2(a.CoinName),
		helpers.EscapeMarkdownV2(strings.ToUpper(a.Symbol)),
		helpers.EscapeMarkdownV2(conditionWord(a.Condition)),
		helpers.FormatPriceUS(a.TargetPrice, true),
	)
}

func alertListText(alerts []types.Alert) string {
	if len(alerts) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You have no active alerts."))
	}

	var alertList strings.Builder
	alertList.WriteString("*" + helpers.EscapeMarkdownV2(translation.Translate("Your active alerts:")) + "*\n\n")
	for _, a := range alerts {
		fmt.Fprintf(&alertList, "▫️*%s \\(%s\\)* %s `$%s` \\- %s\n",
			helpers.EscapeMarkdownV2(a.CoinName),
			helpers.EscapeMarkdownV2(strings.ToUpper(a.Symbol)),
			helpers.EscapeMarkdownV2(conditionWord(a.Condition)),
			helpers.FormatPriceUS(a.TargetPrice, true),
			helpers.FormatAge(a.CreatedAt),
		)
	}
	return alertList.String()
}

// TriggeredText is the direct message sent for a triggered alert
func TriggeredText(ev types.TriggeredEvent) string {
	return fmt.Sprintf("🚨 *%s*\n\n*%s \\(%s\\)* %s `$%s`\n%s: *$%s*",
		helpers.EscapeMarkdownV2(translation.Translate("Price Alert Triggered")),
		helpers.EscapeMarkdownV2(ev.CoinName),
		helpers.EscapeMarkdownV2(strings.ToUpper(ev.Alert.Symbol)),
		helpers.EscapeMarkdownV2(translation.Translate("is now %s your target of", conditionWord(ev.Alert.Condition))),
		helpers.FormatPriceUS(ev.Alert.TargetPrice, true),
		helpers.EscapeMarkdownV2(translation.Translate("Current price")),
		helpers.FormatPriceUS(ev.CurrentPrice, true),
	)
}
