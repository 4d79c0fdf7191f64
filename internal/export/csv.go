package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"order-analytics/internal/models"
)

var rfmHeader = []string{"customer_unique_id", "recency", "frequency", "monetary"}

// WriteCSV writes RFM records with a header row. A missing recency is an
// empty cell.
func WriteCSV(w io.Writer, records []models.RFMRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rfmHeader); err != nil {
		return err
	}

	for _, r := range records {
		recency := ""
		if r.Recency != nil {
			recency = strconv.Itoa(*r.Recency)
		}
		record := []string{
			r.CustomerUniqueID,
			recency,
			strconv.Itoa(r.Frequency),
			strconv.FormatFloat(r.Monetary, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
