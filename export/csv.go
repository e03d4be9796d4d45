// Package export renders distribution results for spreadsheet tools.
package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insafmmkurram-create/web/payout"
)

// ContentType is the media type of WriteCSV output.
const ContentType = "text/csv; charset=utf-8"

// bom makes Excel read the file as UTF-8.
const bom = "\uFEFF"

var header = []string{"Applicant Name", "NIC", "Account Number", "Bank Name", "Total Family Share (PKR)"}

// FileName is the download name for a distribution exported on date.
func FileName(date payout.Date) string {
	return "payment-distribution-" + date.String() + ".csv"
}

// WriteCSV writes one quoted row per result and a closing total row.
// Amounts have two decimals. The header row is unquoted.
func WriteCSV(w io.Writer, results []payout.DistributionResult) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(bom)
	bw.WriteString(strings.Join(header, ","))

	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.TotalAmount)
		writeRow(bw, r.ApplicantName, r.NIC, r.AccountNumber, r.BankName, r.TotalAmount.StringFixed(2))
	}
	writeRow(bw, "", "", "", "Total:", total.StringFixed(2))
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, cells ...string) {
	bw.WriteByte('\n')
	for i, c := range cells {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(c, `"`, `""`))
		bw.WriteByte('"')
	}
}
