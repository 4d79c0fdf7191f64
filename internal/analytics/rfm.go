package analytics

import (
	"sort"
	"time"

	"order-analytics/internal/models"
)

// RFMLeaders holds the top customers by each RFM metric
type RFMLeaders struct {
	Customers    int                `json:"customers"`
	MostRecent   []models.RFMRecord `json:"most_recent"`
	MostFrequent []models.RFMRecord `json:"most_frequent"`
	HighestValue []models.RFMRecord `json:"highest_value"`
}

// RFM computes one record per customer, sorted by customer id. Recency is
// measured from the latest purchase in rows.
func RFM(rows []models.OrderRow) []models.RFMRecord {
	type acc struct {
		latest    time.Time
		frequency int
		monetary  float64
	}
	customers := make(map[string]*acc)
	var maxDate time.Time

	for i := range rows {
		r := &rows[i]
		a, ok := customers[r.CustomerUniqueID]
		if !ok {
			a = &acc{}
			customers[r.CustomerUniqueID] = a
		}
		a.frequency++
		a.monetary += r.TotalValue
		if !r.PurchasedAt.IsZero() {
			if r.PurchasedAt.After(a.latest) {
				a.latest = r.PurchasedAt
			}
			if r.PurchasedAt.After(maxDate) {
				maxDate = r.PurchasedAt
			}
		}
	}

	records := make([]models.RFMRecord, 0, len(customers))
	for _, id := range sortedKeys(customers) {
		a := customers[id]
		rec := models.RFMRecord{
			CustomerUniqueID: id,
			Frequency:        a.frequency,
			Monetary:         a.monetary,
		}
		if !a.latest.IsZero() {
			days := models.FloorDays(maxDate.Sub(a.latest))
			rec.Recency = &days
		}
		records = append(records, rec)
	}
	return records
}

// TopRFM selects n records per metric: recency ascending, frequency and
// monetary descending. Ties keep the input order.
func TopRFM(records []models.RFMRecord, n int) RFMLeaders {
	leaders := RFMLeaders{Customers: len(records)}

	recent := make([]models.RFMRecord, 0, len(records))
	for _, r := range records {
		if r.Recency != nil {
			recent = append(recent, r)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return *recent[i].Recency < *recent[j].Recency
	})
	leaders.MostRecent = head(recent, n)

	frequent := append([]models.RFMRecord(nil), records...)
	sort.SliceStable(frequent, func(i, j int) bool {
		return frequent[i].Frequency > frequent[j].Frequency
	})
	leaders.MostFrequent = head(frequent, n)

	valuable := append([]models.RFMRecord(nil), records...)
	sort.SliceStable(valuable, func(i, j int) bool {
		return valuable[i].Monetary > valuable[j].Monetary
	})
	leaders.HighestValue = head(valuable, n)

	return leaders
}

func head[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		if s == nil {
			return []T{}
		}
		return s
	}
	return s[:n]
}
