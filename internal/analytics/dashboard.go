package analytics

import (
	"order-analytics/internal/models"
)

// BuildOptions tunes the sizes of the dashboard views
type BuildOptions struct {
	HistogramBins int
	TopN          int
	CityLimit     int
	CategoryLimit int
	RecentMonths  int
}

// DefaultBuildOptions mirrors the layout of the dashboard page
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		HistogramBins: 50,
		TopN:          5,
		CityLimit:     10,
		CategoryLimit: 10,
		RecentMonths:  6,
	}
}

// Insights are the views answering the recurring business questions
type Insights struct {
	PriceHistogram   []HistogramBin     `json:"price_histogram"`
	PaymentCounts    []CountStat        `json:"payment_counts"`
	CategoryDelivery []CategoryDelivery `json:"category_delivery_last_year"`
	PaymentTotals    []ValueStat        `json:"payment_totals_recent"`
	PaymentReviews   []ValueStat        `json:"payment_reviews_recent"`
}

// Dashboard bundles every view computed over one filtered table
type Dashboard struct {
	Filter       Filter          `json:"filter"`
	Rows         int             `json:"rows"`
	Overview     OverviewMetrics `json:"overview"`
	Daily        []DailyPoint    `json:"daily"`
	Demographics Demographics    `json:"demographics"`
	Categories   []CategoryStat  `json:"categories"`
	Payments     PaymentInsights `json:"payments"`
	RFM          RFMLeaders      `json:"rfm"`
	Insights     Insights        `json:"insights"`
}

// BuildInsights computes the business-question views
func BuildInsights(rows []models.OrderRow, opts BuildOptions) Insights {
	return Insights{
		PriceHistogram:   PriceHistogram(rows, opts.HistogramBins),
		PaymentCounts:    PaymentCounts(rows),
		CategoryDelivery: CategoryDeliveryLastYear(rows, opts.CategoryLimit),
		PaymentTotals:    PaymentTotalsLastMonths(rows, opts.RecentMonths),
		PaymentReviews:   PaymentReviewLastMonths(rows, opts.RecentMonths),
	}
}

// Build computes every view over rows, which are expected to be filtered by f
func Build(rows []models.OrderRow, f Filter, opts BuildOptions) Dashboard {
	return Dashboard{
		Filter:       f,
		Rows:         len(rows),
		Overview:     Overview(rows),
		Daily:        DailySeries(rows),
		Demographics: CustomerDemographics(rows, opts.CityLimit),
		Categories:   CategoryInsights(rows),
		Payments:     Payments(rows),
		RFM:          TopRFM(RFM(rows), opts.TopN),
		Insights:     BuildInsights(rows, opts),
	}
}
