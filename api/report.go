/*
report.go - Provision totals report

PURPOSE:
  Aggregates every active employee's per-concept balances into one
  company-wide provisions report: the liability the company has accrued
  toward its staff. Served as JSON by default, or as a two-sheet XLSX
  workbook with ?format=xlsx.

SEE ALSO:
  - handlers.go: route wiring and error helpers
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// EmployeeProvisionDTO is one employee's row of the provisions report.
type EmployeeProvisionDTO struct {
	EmployeeID  string            `json:"employee_id"`
	FullName    string            `json:"full_name"`
	Balances    map[string]string `json:"balances"`
	PendingDays float64           `json:"pending_days"`
	Total       string            `json:"total"`
}

// ProvisionsReportDTO is the company-wide provisions summary.
type ProvisionsReportDTO struct {
	GeneratedAt string                 `json:"generated_at"`
	Employees   []EmployeeProvisionDTO `json:"employees"`
	Totals      map[string]string      `json:"totals"`
	GrandTotal  string                 `json:"grand_total"`
}

// =============================================================================
// REPORT HANDLER
// =============================================================================

// ProvisionsReport aggregates all employee balances. Use ?format=xlsx for a
// spreadsheet download.
func (h *Handler) ProvisionsReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildProvisionsReport(r)
	if err != nil {
		writeEngineError(w, "Failed to build provisions report", err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		h.writeReportXLSX(w, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) buildProvisionsReport(r *http.Request) (*ProvisionsReportDTO, error) {
	employees, err := h.Engine.ListEmployees(r.Context())
	if err != nil {
		return nil, err
	}

	report := &ProvisionsReportDTO{
		GeneratedAt: time.Now().In(provision.Zone).Format(time.RFC3339),
		Employees:   make([]EmployeeProvisionDTO, 0, len(employees)),
		Totals:      make(map[string]string),
	}

	totals := make(map[provision.Concept]provision.Money)
	var grand provision.Money
	for _, emp := range employees {
		balances, err := h.Engine.Balances(r.Context(), emp.ID)
		if err != nil {
			return nil, err
		}

		row := EmployeeProvisionDTO{
			EmployeeID: string(emp.ID),
			FullName:   emp.FullName,
			Balances:   make(map[string]string, len(balances)),
		}
		var rowTotal provision.Money
		for _, b := range balances {
			row.Balances[string(b.Account.Concept)] = b.Balance.String()
			row.PendingDays += b.PendingDays
			rowTotal = rowTotal.Add(b.Balance)
			totals[b.Account.Concept] = totals[b.Account.Concept].Add(b.Balance)
		}
		row.Total = rowTotal.String()
		grand = grand.Add(rowTotal)
		report.Employees = append(report.Employees, row)
	}

	for concept, total := range totals {
		report.Totals[string(concept)] = total.String()
	}
	report.GrandTotal = grand.String()
	return report, nil
}

// writeReportXLSX renders the report as a workbook: a summary sheet with
// company totals and a detail sheet with one row per employee.
func (h *Handler) writeReportXLSX(w http.ResponseWriter, report *ProvisionsReportDTO) {
	f := excelize.NewFile()
	summarySheet := "summary"
	detailSheet := "employees"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(detailSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Benefit Provisions Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", report.GeneratedAt)
	row := 5
	for _, concept := range provision.Concepts() {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(concept))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.Totals[string(concept)])
		row++
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Grand total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), report.GrandTotal)

	_ = f.SetCellValue(detailSheet, "A1", "Employee")
	_ = f.SetCellValue(detailSheet, "B1", "License")
	_ = f.SetCellValue(detailSheet, "C1", "Vacation pay")
	_ = f.SetCellValue(detailSheet, "D1", "Bonus")
	_ = f.SetCellValue(detailSheet, "E1", "Pending days")
	_ = f.SetCellValue(detailSheet, "F1", "Total")
	for i, emp := range report.Employees {
		r := i + 2
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("A%d", r), emp.FullName)
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("B%d", r), emp.Balances[string(provision.ConceptLicense)])
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("C%d", r), emp.Balances[string(provision.ConceptVacationPay)])
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("D%d", r), emp.Balances[string(provision.ConceptBonus)])
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("E%d", r), emp.PendingDays)
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("F%d", r), emp.Total)
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="provisions.xlsx"`)
	_ = f.Write(w)
}
