package cli

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

// RenderResults prints rs as a table with a GRAND TOTAL footer.
func RenderResults(w io.Writer, rs valuation.ResultSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(constants.ResultHeaders)
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, r := range rs.Records {
		table.Append([]string{
			r.Keyword,
			strconv.Itoa(r.Count),
			strconv.FormatInt(r.Value, 10),
			strconv.FormatInt(r.Subtotal, 10),
		})
	}
	table.SetFooter([]string{constants.GrandTotalLabel, "", "", strconv.FormatInt(rs.GrandTotal, 10)})
	table.Render()
}
