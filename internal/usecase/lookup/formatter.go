package lookup

import (
	"fmt"
	"html"
	"strings"

	"tg-partsearch-bot/internal/domain"
)

const (
	placeholderTitle = "Not Found"
	placeholderPrice = "N/A"
)

// FormatMoney переводит сумму из минимальных единиц в строку вида "12.50".
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// FormatOutcome формирует текст ответа пользователю по итогу запроса.
func FormatOutcome(o domain.Outcome) string {
	switch o.Kind {
	case domain.OutcomeNoPartNumbers:
		return "Не нашли ни одного артикула в сообщении. Отправьте артикулы через пробел, запятую или с новой строки."
	case domain.OutcomeInsufficientFunds:
		return strings.Join([]string{
			fmt.Sprintf("Недостаточно средств: запрос стоит %s, на балансе %s.", FormatMoney(o.Charge), FormatMoney(o.Balance)),
			"Пополните баланс командой /coupon КОД.",
		}, "\n")
	case domain.OutcomeNoMatches:
		return strings.Join([]string{
			"По вашим артикулам ничего не нашлось. Средства возвращены.",
			fmt.Sprintf("Баланс: %s.", FormatMoney(o.Balance)),
		}, "\n")
	case domain.OutcomeGatewayError:
		return "Не удалось выполнить поиск, средства возвращены. Попробуйте позже."
	case domain.OutcomeSuccess:
		var b strings.Builder
		b.WriteString("🔎 <b>Результаты поиска</b>\n")
		b.WriteString(formatResultList(o.Results))
		b.WriteString(fmt.Sprintf("\nСписано: %s. Баланс: %s.", FormatMoney(o.Charge), FormatMoney(o.Balance)))
		b.WriteString("\nПолный отчёт — в приложенном файле.")
		return b.String()
	default:
		return "Не удалось обработать запрос. Попробуйте позже."
	}
}

// formatResultList отображает полный аннотированный список: позиции без
// совпадений показываются с заглушками, но в отчёт не попадают.
func formatResultList(results []domain.KeywordResult) string {
	var b strings.Builder
	for i, res := range results {
		title := placeholderTitle
		price := placeholderPrice
		if res.Found {
			title = res.Match.Title
			price = res.Match.Price
		}
		b.WriteString(fmt.Sprintf("%d. %s — %s (%s)\n", i+1, html.EscapeString(res.PartNumber), html.EscapeString(title), html.EscapeString(price)))
	}
	return b.String()
}
