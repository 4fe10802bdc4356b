package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt carries the fields printed on a payment receipt PDF.
type Receipt struct {
	SchoolName    string
	InstallmentID string
	StudentID     string
	StudentName   string
	Class         string
	Amount        string
	PaymentDate   string
	PaymentMode   string
	TotalFees     string
	TotalPaid     string
	Balance       string
	RecordedBy    string
}

// ReceiptExporter renders payment receipts sent to guardians over WhatsApp.
type ReceiptExporter struct{}

// NewReceiptExporter constructs a receipt exporter.
func NewReceiptExporter() *ReceiptExporter {
	return &ReceiptExporter{}
}

// Render creates the receipt PDF as bytes. Amounts are printed with an
// "Rs." prefix since the core PDF fonts lack the rupee glyph.
func (e *ReceiptExporter) Render(r Receipt) ([]byte, error) {
	if r.InstallmentID == "" || r.StudentID == "" {
		return nil, fmt.Errorf("receipt requires installment and student ids")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, r.SchoolName, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Receipt Details", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	details := [][2]string{
		{"Receipt No", r.InstallmentID},
		{"Date", r.PaymentDate},
		{"Student ID", r.StudentID},
		{"Student Name", r.StudentName},
		{"Class", r.Class},
	}
	for _, d := range details {
		pdf.CellFormat(45, 7, d[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, d[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Payment Details", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	payments := [][2]string{
		{"Amount Paid", "Rs. " + r.Amount},
		{"Payment Mode", r.PaymentMode},
		{"Total Fees", "Rs. " + r.TotalFees},
		{"Total Paid", "Rs. " + r.TotalPaid},
		{"Remaining Balance", "Rs. " + r.Balance},
		{"Recorded By", r.RecordedBy},
	}
	x, y := pdf.GetXY()
	pdf.Rect(x, y, 180, float64(len(payments))*7+6, "D")
	pdf.Ln(3)
	for _, p := range payments {
		pdf.SetX(x + 5)
		pdf.CellFormat(45, 7, p[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, p[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Thank you for your payment.", "", 1, "", false, 0, "")
	pdf.CellFormat(0, 5, "For queries, contact the school administration.", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
