package models

// ImportedStudent summarises one account created by a spreadsheet import.
type ImportedStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// ImportResult reports a bulk student import. Rows are independent: created rows
// stay committed and failed rows are listed in Errors as "Row {n}: {message}".
type ImportResult struct {
	Success         bool              `json:"success"`
	CreatedCount    int               `json:"created_count"`
	CreatedStudents []ImportedStudent `json:"created_students"`
	Errors          []string          `json:"errors"`
}
