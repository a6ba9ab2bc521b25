package constants

// Spreadsheet layout shared by the table renderer and the XLSX export.
const (
	ResultsSheet    = "Keyword Results"
	GrandTotalLabel = "GRAND TOTAL"
)

// ResultHeaders are the column titles of a result table, in order.
var ResultHeaders = []string{"Keyword", "Count", "Value", "Subtotal"}
