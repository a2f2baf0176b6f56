package provision

import "fmt"

// =============================================================================
// STORAGE PATHS - Canonical document layout
// =============================================================================
// One place for every path so collections cannot drift apart. Salary history
// and payments are keyed under their employee; movements under their account.

const (
	colEmployees     = "employees"
	colSalaryHistory = "salaryHistory"
	colAccounts      = "accounts"
	colMovements     = "movements"
	colPayments      = "payments"
	colAuditLogs     = "auditLogs"
)

func EmployeePath(id EmployeeID) string { return fmt.Sprintf("%s/%s", colEmployees, id) }
func EmployeesPrefix() string           { return colEmployees }

func SalaryPeriodPath(emp EmployeeID, id PeriodID) string {
	return fmt.Sprintf("%s/%s/%s", colSalaryHistory, emp, id)
}
func SalaryHistoryPrefix(emp EmployeeID) string {
	return fmt.Sprintf("%s/%s", colSalaryHistory, emp)
}

func AccountPath(emp EmployeeID, id AccountID) string {
	return fmt.Sprintf("%s/%s/%s", colAccounts, emp, id)
}
func AccountsPrefix(emp EmployeeID) string { return fmt.Sprintf("%s/%s", colAccounts, emp) }

func MovementPath(acc AccountID, id MovementID) string {
	return fmt.Sprintf("%s/%s/%s", colMovements, acc, id)
}
func MovementsPrefix(acc AccountID) string { return fmt.Sprintf("%s/%s", colMovements, acc) }

func PaymentPath(emp EmployeeID, id PaymentID) string {
	return fmt.Sprintf("%s/%s/%s", colPayments, emp, id)
}
func PaymentsPrefix(emp EmployeeID) string { return fmt.Sprintf("%s/%s", colPayments, emp) }

func AuditLogPath(id string) string { return fmt.Sprintf("%s/%s", colAuditLogs, id) }
