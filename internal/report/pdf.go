package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
	"github.com/go-pdf/fpdf"
)

// RenderPDF writes ts as an A4 timesheet.
func RenderPDF(w io.Writer, ts *Timesheet) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Timesheet")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, rangeLabel(ts.Query))
	pdf.Ln(10)

	if len(ts.Buckets) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.Cell(0, 8, "No sessions in range.")
		pdf.Ln(8)
	}

	for _, b := range ts.Buckets {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, b.Title)
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(30, 6, "Started", "B", 0, "", false, 0, "")
		pdf.CellFormat(45, 6, "Project", "B", 0, "", false, 0, "")
		pdf.CellFormat(65, 6, "Task", "B", 0, "", false, 0, "")
		pdf.CellFormat(20, 6, "Time", "B", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "Amount", "B", 1, "R", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, l := range b.Lines {
			pdf.CellFormat(30, 6, l.StartedAt.Format("01-02 15:04"), "", 0, "", false, 0, "")
			pdf.CellFormat(45, 6, clip(l.ProjectName, 26), "", 0, "", false, 0, "")
			pdf.CellFormat(65, 6, clip(l.TaskTitle, 40), "", 0, "", false, 0, "")
			pdf.CellFormat(20, 6, timer.FormatSeconds(l.Seconds), "", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, FormatMoney(l.AmountCents, ts.Currency), "", 1, "R", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(140, 6, "Subtotal", "T", 0, "", false, 0, "")
		pdf.CellFormat(20, 6, timer.FormatSeconds(b.Seconds), "T", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, FormatMoney(b.AmountCents, ts.Currency), "T", 1, "R", false, 0, "")
		pdf.Ln(4)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %s  /  %s",
		timer.FormatSeconds(ts.TotalSeconds), FormatMoney(ts.TotalAmountCents, ts.Currency)))

	return pdf.Output(w)
}

// RenderProposalPDF writes p as a priced offer addressed to clientName.
func RenderProposalPDF(w io.Writer, p *models.Proposal, clientName string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, p.Title)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, "Prepared for: "+clientName)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+p.CreatedAt.Format("02 Jan 2006"))
	pdf.Ln(6)
	if p.ValidUntil != nil {
		pdf.Cell(0, 6, "Valid until: "+p.ValidUntil.Format("02 Jan 2006"))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Status: "+string(p.Status))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(100, 7, "Description", "B", 0, "", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range p.Items {
		pdf.CellFormat(100, 7, clip(item.Description, 60), "", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, strconv.FormatFloat(item.Quantity, 'f', -1, 64), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, FormatMoney(item.UnitPriceCents, p.Currency), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, FormatMoney(item.AmountCents(), p.Currency), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(155, 8, "Total", "T", 0, "", false, 0, "")
	pdf.CellFormat(35, 8, FormatMoney(p.TotalCents(), p.Currency), "T", 1, "R", false, 0, "")

	if p.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, p.Notes, "", "", false)
	}
	return pdf.Output(w)
}

func rangeLabel(q Query) string {
	from, to := "beginning", "now"
	if !q.From.IsZero() {
		from = q.From.Format("2006-01-02")
	}
	if !q.To.IsZero() {
		to = q.To.Format("2006-01-02")
	}
	return fmt.Sprintf("%s to %s, grouped by %s", from, to, q.Group)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
