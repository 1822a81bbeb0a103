// Package export renders in-memory pedido structures into downloadable
// artifacts. Pure formatting, no network dependency.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
)

var itemHeaders = []string{
	"Código", "Artículo", "Categoría", "Unidad", "Precio", "Precio regular",
	"Cantidad", "Importe", "Surtido", "No encontrado",
}

// ItemsXLSX writes a spreadsheet with one row per line item of the pedido.
func ItemsXLSX(w io.Writer, p *pedido.Pedido) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("Pedido %d", p.ID)
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &itemHeaders)

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetCellStyle(sheet, "A1", "J1", style)
	}

	for i, it := range p.Articulos {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		importe := it.Precio.Mul(it.Cantidad)
		row := []interface{}{
			it.ID, it.Nombre, it.Categoria, it.Unidad,
			it.Precio.StringFixed(2), it.PrecioRegular.StringFixed(2),
			it.Cantidad.String(), importe.StringFixed(2),
			boolMark(it.Surtido), boolMark(it.NoEncontrado),
		}
		f.SetSheetRow(sheet, cell, &row)
	}

	totalCell, _ := excelize.CoordinatesToCellName(7, len(p.Articulos)+3)
	f.SetCellValue(sheet, totalCell, "Total")
	sumCell, _ := excelize.CoordinatesToCellName(8, len(p.Articulos)+3)
	f.SetCellValue(sheet, sumCell, p.Total.StringFixed(2))

	f.SetColWidth(sheet, "B", "B", 35)
	f.SetColWidth(sheet, "C", "D", 14)
	f.SetColWidth(sheet, "E", "H", 12)

	return f.Write(w)
}

func boolMark(b bool) string {
	if b {
		return "Sí"
	}
	return ""
}

// SummaryPDF writes a tabular summary of the given pedidos.
func SummaryPDF(w io.Writer, pedidos []*pedido.Pedido, generatedAt time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	// Core fonts are cp1252; accents must go through the translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Resumen de pedidos", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Resumen de pedidos", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generado: "+generatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Pedido", "Cliente", "Teléfono", "Status", "Urgencia", "Programado", "Artículos", "Total"}
	widths := []float64{20, 60, 30, 28, 22, 36, 22, 28}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, p := range pedidos {
		cells := []string{
			fmt.Sprintf("%d", p.ID),
			p.ClienteNombre,
			p.ClienteTelefono,
			p.Status,
			p.Urgencia,
			p.ProgramadoPara.Format("02/01/2006 15:04"),
			fmt.Sprintf("%d", len(p.Articulos)),
			"$" + p.Total.StringFixed(2),
		}
		for i, c := range cells {
			align := "L"
			if i == 0 || i >= 6 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
