// Package pdf genera la guía de remisión de una transferencia de stock con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tienda               │  N° Transferencia + Fecha    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN / DESTINO / Transportista + guía                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Producto | SKU | Costo unit. | Subtotal       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL + QR del número + firmas                              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ ports.DeliveryNoteGenerator = (*MarotoDeliveryNoteGenerator)(nil)

// MarotoDeliveryNoteGenerator implementa ports.DeliveryNoteGenerator usando Maroto v2.
type MarotoDeliveryNoteGenerator struct{}

// NewMarotoDeliveryNoteGenerator construye el generador.
func NewMarotoDeliveryNoteGenerator() *MarotoDeliveryNoteGenerator {
	return &MarotoDeliveryNoteGenerator{}
}

// GenerateDeliveryNote genera el PDF y devuelve sus bytes.
func (g *MarotoDeliveryNoteGenerator) GenerateDeliveryNote(_ context.Context, note ports.DeliveryNote) ([]byte, error) {
	t := note.Transfer
	if t == nil {
		return nil, fmt.Errorf("pdf: transferencia requerida")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Guía de remisión "+t.TransferNumber, true).
		WithAuthor(note.ShopName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(note))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(locationsRow(note))
	m.AddRows(shippingRow(t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(t.Items) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(t))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(t))
	m.AddRows(signaturesRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: tienda (izq) y número de transferencia + fecha de despacho (der).
func headerRow(note ports.DeliveryNote) core.Row {
	t := note.Transfer
	fecha := "—"
	if t.ShippedAt != nil {
		fecha = t.ShippedAt.Format("02/01/2006 15:04")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(note.ShopName, "SmartDuka"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Prioridad: "+string(t.Priority), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("GUÍA DE REMISIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(t.TransferNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Despacho: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func locationsRow(note ports.DeliveryNote) core.Row {
	block := func(title, name string) core.Col {
		return col.New(6).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		)
	}
	return row.New(14).Add(
		block("ORIGEN", note.FromName),
		block("DESTINO", note.ToName),
	)
}

func shippingRow(t *entity.StockTransfer) core.Row {
	arrival := "—"
	if t.ExpectedArrival != nil {
		arrival = t.ExpectedArrival.Format("02/01/2006")
	}
	return row.New(10).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Transportista: %s   |   Guía: %s   |   Llegada estimada: %s",
				nonEmpty(t.Carrier, "—"),
				nonEmpty(t.TrackingNumber, "—"),
				arrival,
			), props.Text{Size: 8, Top: 2, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Producto", 5, align.Left),
		h("SKU", 2, align.Left),
		h("Costo unit.", 2, align.Right),
		h("Subtotal", 2, align.Right),
	)
}

// tableDetailRows: una fila por línea de la transferencia.
func tableDetailRows(items []entity.TransferItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		subtotal := it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity)))
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				fmt.Sprintf("%d", it.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				it.ProductName,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				nonEmpty(it.SKU, "—"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				FormatMoney(it.UnitCost),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				FormatMoney(subtotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(t *entity.StockTransfer) core.Row {
	units := 0
	for _, it := range t.Items {
		units += it.Quantity
	}
	return row.New(12).Add(
		col.New(6),
		col.New(3).Add(
			text.New("Unidades:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2}),
			text.New("VALOR TOTAL:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 5,
			}),
		),
		col.New(3).Add(
			text.New(fmt.Sprintf("%d", units), props.Text{Size: 9, Align: align.Right, Right: 1}),
			text.New(FormatMoney(t.TotalValue), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 5,
			}),
		),
	)
}

// footerRow: QR con el número de transferencia para la recepción en destino.
func footerRow(t *entity.StockTransfer) core.Row {
	notes := t.Notes
	if t.Reason != "" {
		notes = "Motivo: " + t.Reason + "\n" + notes
	}
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(t.TransferNumber, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Escanee el código al recibir la mercancía.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New(notes, props.Text{Size: 8, Top: 12, Left: 3}),
		),
	)
}

func signaturesRow() core.Row {
	sign := func(label string) core.Col {
		return col.New(6).Add(
			text.New("______________________________", props.Text{Size: 9, Align: align.Center, Top: 10}),
			text.New(label, props.Text{Size: 8, Align: align.Center, Top: 16, Color: colorGray}),
		)
	}
	return row.New(24).Add(sign("Despachado por"), sign("Recibido por"))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// FormatMoney redondea a unidades e inserta separadores de miles.
// Ej: 25000 → "25,000", -1500 → "-1,500"
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(0)
	n := len(s)
	buf := make([]byte, 0, n+n/3+1)
	if d.Round(0).IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
