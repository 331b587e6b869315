package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Formatting helpers for document render contexts. Documents are issued in
// pt-BR conventions: comma decimal separator, dot thousands separator,
// dd/mm/yyyy dates.

func formatCurrency(value decimal.Decimal) string {
	s := value.StringFixed(2) // e.g. "1234.56" or "-1234.56"

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	out := b.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func formatPercent(value decimal.Decimal) string {
	return formatCurrency(value)
}

func formatDate(value *time.Time) string {
	if value == nil {
		return "--"
	}
	return value.Format("02/01/2006")
}

func formatDateTime(value *time.Time) string {
	if value == nil {
		return "--"
	}
	return value.Format("02/01/2006 15:04")
}

var monthNames = []string{
	"janeiro", "fevereiro", "marco", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// formatLongDate spells the date out for contract bodies, e.g.
// "5 de janeiro de 2024".
func formatLongDate(value time.Time) string {
	return strconv.Itoa(value.Day()) +
		" de " + monthNames[value.Month()-1] +
		" de " + strconv.Itoa(value.Year())
}
