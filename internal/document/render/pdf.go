package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
)

const dateLayout = "02 Jan 2006"

// Renderer turns a document into a printable file.
type Renderer interface {
	Render(ctx context.Context, doc *documentdomain.Document) ([]byte, error)
}

type pdfRenderer struct{}

func New() Renderer {
	return &pdfRenderer{}
}

// Filename is the download name of a rendered document.
func Filename(doc *documentdomain.Document) string {
	name := doc.ID.String()
	if doc.DocumentNumber != nil && *doc.DocumentNumber != "" {
		name = strings.NewReplacer("/", "-", " ", "_").Replace(*doc.DocumentNumber)
	}
	return fmt.Sprintf("%s-%s.pdf", doc.Kind, name)
}

func (r *pdfRenderer) Render(ctx context.Context, doc *documentdomain.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, title(doc), props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, string(doc.Status), props.Text{
			Size:  10,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	number := "Not yet issued"
	if doc.DocumentNumber != nil {
		number = *doc.DocumentNumber
	}
	meta := col.New(6).Add(
		text.New("Number: "+number, props.Text{Top: 0}),
		text.New("Date of issue: "+formatDate(doc.IssuedAt), props.Text{Top: 4}),
	)
	if doc.Kind == documentdomain.KindQuotation {
		meta.Add(text.New("Valid until: "+formatDate(doc.ValidUntil), props.Text{Top: 8}))
	}
	customer := col.New(6).Add(
		text.New("Bill to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
		text.New(doc.CustomerName, props.Text{Top: 5, Align: align.Right}),
	)
	if doc.CustomerEmail != "" {
		customer.Add(text.New(doc.CustomerEmail, props.Text{Top: 9, Align: align.Right}))
	}
	m.AddRow(20, meta, customer)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(5, "Description", header),
		text.NewCol(2, "Qty", headerRight),
		text.NewCol(2, "Unit price", headerRight),
		text.NewCol(1, "Disc.", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(5, item.Description, cell),
			text.NewCol(2, fmt.Sprintf("%s %s", item.Quantity.String(), item.Unit), cellRight),
			text.NewCol(2, item.UnitPrice.StringFixed(2), cellRight),
			text.NewCol(1, item.LineDiscount.StringFixed(2), cellRight),
			text.NewCol(2, item.LineTotal.StringFixed(2), cellRight),
		)
	}

	m.AddRow(6, col.New(12))
	totalRow(m, "Subtotal", money(doc.Currency, doc.Subtotal), false)
	if doc.DiscountAmount.IsPositive() {
		totalRow(m, "Discount", "-"+money(doc.Currency, doc.DiscountAmount), false)
	}
	for _, line := range doc.TaxLines {
		label := fmt.Sprintf("%s (%s)", line.TaxName, rateLabel(line))
		if line.IsInclusive {
			label += " incl."
		}
		totalRow(m, label, money(doc.Currency, line.Amount), false)
	}
	totalRow(m, "Total", money(doc.Currency, doc.Total), true)

	if doc.Notes != "" {
		m.AddRow(20, text.NewCol(12, doc.Notes, props.Text{Size: 9, Top: 6}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func title(doc *documentdomain.Document) string {
	if doc.Kind == documentdomain.KindQuotation {
		return "Quotation"
	}
	return "Invoice"
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	style := props.Text{Size: 9}
	if bold {
		style.Style = fontstyle.Bold
	}
	valueStyle := style
	valueStyle.Align = align.Right
	m.AddRow(7,
		col.New(7),
		text.NewCol(3, label, style),
		text.NewCol(2, value, valueStyle),
	)
}

func money(currency string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}

func rateLabel(line documentdomain.TaxLine) string {
	if line.RateType == "fixed" {
		return line.Rate.StringFixed(2) + " fixed"
	}
	return line.Rate.String() + "%"
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
