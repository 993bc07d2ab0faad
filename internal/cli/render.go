package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"github.com/smallbiznis/vendorbill/internal/tax/engine"
)

var (
	accent = lipgloss.Color("#0EA5E9")
	dim    = lipgloss.Color("#6B7280")
	faint  = lipgloss.Color("#3F3F46")
	strong = lipgloss.Color("#E8E6E3")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle  = lipgloss.NewStyle().Foreground(dim)
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(strong)
	numberStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faint).
			Padding(0, 2)
	separator = lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("─", 72))
)

func renderQuote(q *quoteResult) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Quote · %s · %s", q.ServiceType, q.Currency)))
	b.WriteString("\n" + separator + "\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-3s %-28s %8s %-6s %10s %10s %8s", "#", "Description", "Qty", "Unit", "Price", "Total", "Tax")))
	b.WriteString("\n")
	for _, line := range q.Lines {
		b.WriteString(fmt.Sprintf("%-3d %-28s %8s %-6s %10s %10s %8s\n",
			line.Position,
			truncate(line.Description, 28),
			line.Quantity.String(),
			line.Unit,
			money(line.UnitPrice),
			money(line.LineTotal),
			money(line.TaxAmount),
		))
	}

	if len(q.TaxLines) > 0 {
		b.WriteString(separator + "\n")
		b.WriteString(labelStyle.Render("Taxes"))
		b.WriteString("\n")
		for _, line := range q.TaxLines {
			name := fmt.Sprintf("%s (%s)", line.TaxName, rateLabel(line))
			if line.IsInclusive {
				name += " incl."
			}
			b.WriteString(fmt.Sprintf("    %-52s %14s\n", truncate(name, 52), money(line.Amount)))
		}
	}
	if len(q.Exempted) > 0 {
		b.WriteString(labelStyle.Render("    exempted: " + strings.Join(q.Exempted, ", ")))
		b.WriteString("\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString(summaryRow("Subtotal", q.Totals.Subtotal))
	b.WriteString(summaryRow("Discount", q.Totals.DiscountAmount.Neg()))
	b.WriteString(summaryRow("Tax", q.Totals.TaxAmount))
	if q.InclusiveTaxAmount.IsPositive() {
		b.WriteString(summaryRow("Included tax", q.InclusiveTaxAmount))
	}
	b.WriteString(totalStyle.Render(fmt.Sprintf("%-56s %14s", "Total "+q.Currency, money(q.Totals.Total))))
	b.WriteString("\n")
	return b.String()
}

func renderNumber(number string) string {
	return numberStyle.Render(number) + "\n"
}

func summaryRow(label string, amount decimal.Decimal) string {
	return labelStyle.Render(fmt.Sprintf("%-56s", label)) + fmt.Sprintf(" %14s\n", money(amount))
}

func rateLabel(line engine.Line) string {
	if line.RateType == taxdomain.RateTypeFixed {
		return "fixed " + money(line.Rate)
	}
	return line.Rate.String() + "%"
}

func money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
