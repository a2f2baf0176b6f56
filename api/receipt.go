/*
receipt.go - PDF payment receipt

PURPOSE:
  Renders a settled payment as a one-page PDF receipt. Receipt generation
  is a read-only view over an already committed payment: a rendering
  failure never implies anything about the ledger and must not trigger any
  rollback.

SEE ALSO:
  - handlers.go: route wiring and error helpers
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"github.com/austral/provision-engine/provision"
)

var conceptLabels = map[provision.Concept]string{
	provision.ConceptLicense:     "Paid license",
	provision.ConceptVacationPay: "Vacation pay",
	provision.ConceptBonus:       "Year-end bonus",
}

// PaymentReceipt streams the payment's PDF receipt.
func (h *Handler) PaymentReceipt(w http.ResponseWriter, r *http.Request) {
	id := provision.EmployeeID(chi.URLParam(r, "id"))
	paymentID := provision.PaymentID(chi.URLParam(r, "paymentID"))

	emp, err := h.Engine.GetEmployee(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get employee", err)
		return
	}
	payment, err := h.Engine.GetPayment(r.Context(), id, paymentID)
	if err != nil {
		writeEngineError(w, "Failed to get payment", err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Benefit Payment Receipt")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", emp.FullName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("National ID: %s", emp.NationalID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Payment month: %s", payment.Month))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Receipt no: %s", payment.ID))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(120, 8, "Concept")
	pdf.Cell(0, 8, "Amount")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	for _, detail := range payment.Details {
		label := conceptLabels[detail.Concept]
		if label == "" {
			label = string(detail.Concept)
		}
		if detail.Days != nil {
			label = fmt.Sprintf("%s (%s days)", label, detail.Days.StringFixed(2))
		}
		pdf.Cell(120, 8, label)
		pdf.Cell(0, 8, detail.Amount.String())
		pdf.Ln(7)
	}

	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(120, 8, "Total")
	pdf.Cell(0, 8, payment.Total.String())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, payment.ID))
	// Headers are already sent; a write failure here cannot be reported.
	_ = pdf.Output(w)
}
