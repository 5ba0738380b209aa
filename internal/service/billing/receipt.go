// Package billing renders the printable PDF receipt SPEC_FULL.md adds
// on top of spec §4.1's Bill record, using jung-kurt/gofpdf (pulled
// into the pack from aj9599-zev-billing for this billing domain).
package billing

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/evstation/charge-station/internal/domain"
)

// RenderReceipt produces a single-page PDF receipt for bill, suitable
// for emailing as an attachment (internal/service/email).
func RenderReceipt(bill domain.Bill) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Charging Bill Receipt")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.CellFormat(60, 8, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	row("Bill ID", bill.BillID)
	row("Car ID", bill.CarID)
	row("Pile ID", bill.PileID)
	row("Mode", string(bill.Mode))
	row("Start time", bill.StartTime.Format("2006-01-02 15:04:05"))
	row("End time", bill.EndTime.Format("2006-01-02 15:04:05"))
	row("Delivered energy", fmt.Sprintf("%.2f kWh", bill.DeliveredKWh))
	pdf.Ln(2)
	row("Charge fee", fmt.Sprintf("%.2f", bill.ChargeFee))
	row("Service fee", fmt.Sprintf("%.2f", bill.ServiceFee))

	pdf.SetFont("Helvetica", "B", 12)
	row("Total due", fmt.Sprintf("%.2f", bill.TotalFee))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
