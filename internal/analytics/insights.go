package analytics

import (
	"math"
	"sort"
	"time"

	"order-analytics/internal/models"
)

// HistogramBin counts prices in [Lower, Upper); the last bin is closed
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// CategoryDelivery is the mean delivery time of one category
type CategoryDelivery struct {
	Category        string  `json:"category"`
	AvgDeliveryTime float64 `json:"avg_delivery_time"`
}

// PriceHistogram splits the price range into bins of equal width. A constant
// price is spread over [p-0.5, p+0.5].
func PriceHistogram(rows []models.OrderRow, bins int) []HistogramBin {
	if len(rows) == 0 || bins <= 0 {
		return []HistogramBin{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range rows {
		lo = math.Min(lo, rows[i].Price)
		hi = math.Max(hi, rows[i].Price)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for b := range out {
		out[b].Lower = lo + float64(b)*width
		out[b].Upper = lo + float64(b+1)*width
	}
	out[bins-1].Upper = hi

	for i := range rows {
		b := int((rows[i].Price - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		out[b].Count++
	}
	return out
}

// PaymentCounts counts rows per payment type, most used first
func PaymentCounts(rows []models.OrderRow) []CountStat {
	index := make(map[string]int)
	out := make([]CountStat, 0)

	for i := range rows {
		pt := rows[i].PaymentType
		if pt == "" {
			continue
		}
		j, ok := index[pt]
		if !ok {
			j = len(out)
			index[pt] = j
			out = append(out, CountStat{Key: pt})
		}
		out[j].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// CategoryDeliveryLastYear averages delivery time per category over the
// year before the latest purchase and keeps the n slowest categories
func CategoryDeliveryLastYear(rows []models.OrderRow, n int) []CategoryDelivery {
	recent := trailing(rows, func(latest time.Time) time.Time {
		return shiftMonths(latest, -12)
	})

	groups := make(map[string]*mean)
	for i := range recent {
		r := &recent[i]
		if r.ProductCategoryName == "" || r.DeliveryTime == nil {
			continue
		}
		m, ok := groups[r.ProductCategoryName]
		if !ok {
			m = &mean{}
			groups[r.ProductCategoryName] = m
		}
		m.addOptionalInt(r.DeliveryTime)
	}

	out := make([]CategoryDelivery, 0, len(groups))
	for _, k := range sortedKeys(groups) {
		out = append(out, CategoryDelivery{Category: k, AvgDeliveryTime: *groups[k].value()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgDeliveryTime > out[j].AvgDeliveryTime
	})
	return head(out, n)
}

// PaymentTotalsLastMonths sums payment_value per payment type over the
// trailing window, largest first
func PaymentTotalsLastMonths(rows []models.OrderRow, months int) []ValueStat {
	recent := trailing(rows, func(latest time.Time) time.Time {
		return shiftMonths(latest, -months)
	})

	totals := make(map[string]float64)
	for i := range recent {
		r := &recent[i]
		if r.PaymentType == "" {
			continue
		}
		v := 0.0
		if r.PaymentValue != nil {
			v = *r.PaymentValue
		}
		totals[r.PaymentType] += v
	}

	out := make([]ValueStat, 0, len(totals))
	for _, k := range sortedKeys(totals) {
		out = append(out, ValueStat{Key: k, Value: totals[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// PaymentReviewLastMonths averages review_score per payment type over the
// trailing window, best first. Types without reviews are omitted.
func PaymentReviewLastMonths(rows []models.OrderRow, months int) []ValueStat {
	recent := trailing(rows, func(latest time.Time) time.Time {
		return shiftMonths(latest, -months)
	})

	groups := make(map[string]*mean)
	for i := range recent {
		r := &recent[i]
		if r.PaymentType == "" || r.ReviewScore == nil {
			continue
		}
		m, ok := groups[r.PaymentType]
		if !ok {
			m = &mean{}
			groups[r.PaymentType] = m
		}
		m.addOptional(r.ReviewScore)
	}

	out := make([]ValueStat, 0, len(groups))
	for _, k := range sortedKeys(groups) {
		out = append(out, ValueStat{Key: k, Value: *groups[k].value()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// trailing keeps rows purchased at or after cutoff(latest purchase)
func trailing(rows []models.OrderRow, cutoff func(latest time.Time) time.Time) []models.OrderRow {
	var latest time.Time
	for i := range rows {
		if rows[i].PurchasedAt.After(latest) {
			latest = rows[i].PurchasedAt
		}
	}
	if latest.IsZero() {
		return nil
	}

	from := cutoff(latest)
	out := make([]models.OrderRow, 0, len(rows))
	for i := range rows {
		t := rows[i].PurchasedAt
		if !t.IsZero() && !t.Before(from) {
			out = append(out, rows[i])
		}
	}
	return out
}

// shiftMonths moves t by months, clamping the day to the end of the target
// month (Aug 31 minus 6 months is Feb 28, not Mar 3)
func shiftMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
