package analytics

import (
	"sort"
	"time"

	"order-analytics/internal/models"
)

// OverviewMetrics are the headline numbers of the dashboard
type OverviewMetrics struct {
	TotalOrders     int      `json:"total_orders"`
	TotalRevenue    float64  `json:"total_revenue"`
	AvgOrderValue   *float64 `json:"avg_order_value"`
	AvgDeliveryTime *float64 `json:"avg_delivery_time"`
}

// DailyPoint is one day of the time series
type DailyPoint struct {
	Date    time.Time `json:"date"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
}

// CountStat pairs a key with a count
type CountStat struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ValueStat pairs a key with a numeric value
type ValueStat struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Demographics counts distinct customers by location
type Demographics struct {
	States    []CountStat `json:"states"`
	TopCities []CountStat `json:"top_cities"`
}

// CategoryStat summarizes one product category
type CategoryStat struct {
	Category        string   `json:"category"`
	TotalValue      float64  `json:"total_value"`
	AvgDeliveryTime *float64 `json:"avg_delivery_time"`
	AvgReviewScore  *float64 `json:"avg_review_score"`
}

// PaymentTypeStat summarizes one payment type
type PaymentTypeStat struct {
	PaymentType    string   `json:"payment_type"`
	TotalValue     float64  `json:"total_value"`
	AvgReviewScore *float64 `json:"avg_review_score"`
}

// InstallmentStat summarizes one installment count
type InstallmentStat struct {
	Installments   int      `json:"installments"`
	AvgValue       float64  `json:"avg_value"`
	AvgReviewScore *float64 `json:"avg_review_score"`
}

// PaymentInsights groups payment breakdowns
type PaymentInsights struct {
	ByType         []PaymentTypeStat `json:"by_type"`
	ByInstallments []InstallmentStat `json:"by_installments"`
}

// mean accumulates values that may be missing
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) addOptional(v *float64) {
	if v != nil {
		m.add(*v)
	}
}

func (m *mean) addOptionalInt(v *int) {
	if v != nil {
		m.add(float64(*v))
	}
}

// value is nil when nothing was added
func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

// sortedKeys returns map keys ascending so later stable sorts break ties by key
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Overview computes distinct orders, revenue and the two averages
func Overview(rows []models.OrderRow) OverviewMetrics {
	var m OverviewMetrics
	orders := make(map[string]struct{})
	var value, delivery mean

	for i := range rows {
		r := &rows[i]
		if r.OrderID != "" {
			orders[r.OrderID] = struct{}{}
		}
		m.TotalRevenue += r.TotalValue
		value.add(r.TotalValue)
		delivery.addOptionalInt(r.DeliveryTime)
	}

	m.TotalOrders = len(orders)
	m.AvgOrderValue = value.value()
	m.AvgDeliveryTime = delivery.value()
	return m
}

// DailySeries returns distinct orders and revenue per purchase date, ascending
func DailySeries(rows []models.OrderRow) []DailyPoint {
	type day struct {
		orders  map[string]struct{}
		revenue float64
	}
	days := make(map[time.Time]*day)

	for i := range rows {
		r := &rows[i]
		date := r.PurchaseDate()
		if date.IsZero() {
			continue
		}
		d, ok := days[date]
		if !ok {
			d = &day{orders: make(map[string]struct{})}
			days[date] = d
		}
		if r.OrderID != "" {
			d.orders[r.OrderID] = struct{}{}
		}
		d.revenue += r.TotalValue
	}

	points := make([]DailyPoint, 0, len(days))
	for date, d := range days {
		points = append(points, DailyPoint{Date: date, Orders: len(d.orders), Revenue: d.revenue})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// CustomerDemographics counts distinct customers per state (ascending) and returns
// the cityLimit cities with the most customers (descending)
func CustomerDemographics(rows []models.OrderRow, cityLimit int) Demographics {
	states := make(map[string]map[string]struct{})
	cities := make(map[string]map[string]struct{})

	for i := range rows {
		r := &rows[i]
		if r.CustomerUniqueID == "" {
			continue
		}
		if r.CustomerState != "" {
			addDistinct(states, r.CustomerState, r.CustomerUniqueID)
		}
		if r.CustomerCity != "" {
			addDistinct(cities, r.CustomerCity, r.CustomerUniqueID)
		}
	}

	d := Demographics{
		States:    distinctCounts(states),
		TopCities: distinctCounts(cities),
	}
	sort.SliceStable(d.States, func(i, j int) bool {
		return d.States[i].Count < d.States[j].Count
	})
	sort.SliceStable(d.TopCities, func(i, j int) bool {
		return d.TopCities[i].Count > d.TopCities[j].Count
	})
	if cityLimit >= 0 && len(d.TopCities) > cityLimit {
		d.TopCities = d.TopCities[:cityLimit]
	}
	return d
}

func addDistinct(groups map[string]map[string]struct{}, key, member string) {
	g, ok := groups[key]
	if !ok {
		g = make(map[string]struct{})
		groups[key] = g
	}
	g[member] = struct{}{}
}

func distinctCounts(groups map[string]map[string]struct{}) []CountStat {
	out := make([]CountStat, 0, len(groups))
	for _, k := range sortedKeys(groups) {
		out = append(out, CountStat{Key: k, Count: len(groups[k])})
	}
	return out
}

// CategoryInsights aggregates value, delivery time and reviews per category,
// sorted by total value descending
func CategoryInsights(rows []models.OrderRow) []CategoryStat {
	type acc struct {
		total            float64
		delivery, review mean
	}
	groups := make(map[string]*acc)

	for i := range rows {
		r := &rows[i]
		if r.ProductCategoryName == "" {
			continue
		}
		a, ok := groups[r.ProductCategoryName]
		if !ok {
			a = &acc{}
			groups[r.ProductCategoryName] = a
		}
		a.total += r.TotalValue
		a.delivery.addOptionalInt(r.DeliveryTime)
		a.review.addOptional(r.ReviewScore)
	}

	out := make([]CategoryStat, 0, len(groups))
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		out = append(out, CategoryStat{
			Category:        k,
			TotalValue:      a.total,
			AvgDeliveryTime: a.delivery.value(),
			AvgReviewScore:  a.review.value(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalValue > out[j].TotalValue
	})
	return out
}

// Payments aggregates value and reviews per payment type and per
// installment count
func Payments(rows []models.OrderRow) PaymentInsights {
	type typeAcc struct {
		total  float64
		review mean
	}
	type installmentAcc struct {
		value, review mean
	}
	types := make(map[string]*typeAcc)
	installments := make(map[int]*installmentAcc)

	for i := range rows {
		r := &rows[i]
		if r.PaymentType != "" {
			a, ok := types[r.PaymentType]
			if !ok {
				a = &typeAcc{}
				types[r.PaymentType] = a
			}
			a.total += r.TotalValue
			a.review.addOptional(r.ReviewScore)
		}
		if r.PaymentInstallments != nil {
			a, ok := installments[*r.PaymentInstallments]
			if !ok {
				a = &installmentAcc{}
				installments[*r.PaymentInstallments] = a
			}
			a.value.add(r.TotalValue)
			a.review.addOptional(r.ReviewScore)
		}
	}

	p := PaymentInsights{
		ByType:         make([]PaymentTypeStat, 0, len(types)),
		ByInstallments: make([]InstallmentStat, 0, len(installments)),
	}
	for _, k := range sortedKeys(types) {
		a := types[k]
		p.ByType = append(p.ByType, PaymentTypeStat{
			PaymentType:    k,
			TotalValue:     a.total,
			AvgReviewScore: a.review.value(),
		})
	}
	for n, a := range installments {
		p.ByInstallments = append(p.ByInstallments, InstallmentStat{
			Installments:   n,
			AvgValue:       a.value.sum / float64(a.value.n),
			AvgReviewScore: a.review.value(),
		})
	}
	sort.Slice(p.ByInstallments, func(i, j int) bool {
		return p.ByInstallments[i].Installments < p.ByInstallments[j].Installments
	})
	return p
}
