package analytics

import (
	"testing"
	"time"

	"order-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceHistogram(t *testing.T) {
	rows := []models.OrderRow{
		row("1", "a", "x", "boleto", 0, 0, ""),
		row("2", "a", "x", "boleto", 5, 0, ""),
		row("3", "a", "x", "boleto", 9.99, 0, ""),
		row("4", "a", "x", "boleto", 10, 0, ""),
	}

	bins := PriceHistogram(rows, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 5.0, bins[0].Upper)
	assert.Equal(t, 1, bins[0].Count)
	// the maximum lands in the last bin
	assert.Equal(t, 3, bins[1].Count)
	assert.Equal(t, 10.0, bins[1].Upper)
}

func TestPriceHistogramConstantPrice(t *testing.T) {
	rows := []models.OrderRow{
		row("1", "a", "x", "boleto", 7, 0, ""),
		row("2", "a", "x", "boleto", 7, 0, ""),
	}

	bins := PriceHistogram(rows, 4)
	require.Len(t, bins, 4)
	assert.Equal(t, 6.5, bins[0].Lower)
	assert.Equal(t, 7.5, bins[3].Upper)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
}

func TestPaymentCounts(t *testing.T) {
	counts := PaymentCounts(sampleRows())

	assert.Equal(t, []CountStat{
		{Key: "boleto", Count: 3},
		{Key: "credit_card", Count: 2},
		{Key: "voucher", Count: 1},
	}, counts)
}

func TestCategoryDeliveryLastYear(t *testing.T) {
	old := row("old", "a", "furniture", "boleto", 1, 1, "2016-12-01 00:00:00")
	old.DeliveredCustomerAt = day("2017-02-01 00:00:00")
	fast := row("fast", "b", "toys", "boleto", 1, 1, "2017-06-01 00:00:00")
	fast.DeliveredCustomerAt = day("2017-06-03 00:00:00")
	slow := row("slow", "c", "garden", "boleto", 1, 1, "2017-12-01 00:00:00")
	slow.DeliveredCustomerAt = day("2017-12-21 00:00:00")
	undelivered := row("nodate", "d", "books", "boleto", 1, 1, "2017-12-02 00:00:00")

	rows := []models.OrderRow{old, fast, slow, undelivered}
	for i := range rows {
		rows[i].Derive()
	}

	got := CategoryDeliveryLastYear(rows, 10)
	assert.Equal(t, []CategoryDelivery{
		{Category: "garden", AvgDeliveryTime: 20},
		{Category: "toys", AvgDeliveryTime: 2},
	}, got)

	assert.Len(t, CategoryDeliveryLastYear(rows, 1), 1)
}

func TestPaymentWindows(t *testing.T) {
	rows := []models.OrderRow{
		row("1", "a", "x", "boleto", 1, 0, "2018-01-10 00:00:00"),
		row("2", "a", "x", "credit_card", 1, 0, "2018-06-01 00:00:00"),
		row("3", "a", "x", "credit_card", 1, 0, "2018-08-31 00:00:00"),
		row("4", "a", "x", "voucher", 1, 0, "2018-03-01 00:00:00"),
	}
	rows[0].PaymentValue, rows[0].ReviewScore = ptrF(500), ptrF(1)
	rows[1].PaymentValue, rows[1].ReviewScore = ptrF(20), ptrF(4)
	rows[2].PaymentValue, rows[2].ReviewScore = ptrF(30), ptrF(5)
	rows[3].PaymentValue = ptrF(40)

	totals := PaymentTotalsLastMonths(rows, 6)
	assert.Equal(t, []ValueStat{
		{Key: "credit_card", Value: 50},
		{Key: "voucher", Value: 40},
	}, totals)

	reviews := PaymentReviewLastMonths(rows, 6)
	assert.Equal(t, []ValueStat{{Key: "credit_card", Value: 4.5}}, reviews)
}

func TestShiftMonthsClampsToMonthEnd(t *testing.T) {
	got := shiftMonths(time.Date(2018, 8, 31, 12, 0, 0, 0, time.UTC), -6)
	assert.Equal(t, time.Date(2018, 2, 28, 12, 0, 0, 0, time.UTC), got)

	got = shiftMonths(time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC), -12)
	assert.Equal(t, time.Date(2015, 2, 28, 0, 0, 0, 0, time.UTC), got)

	got = shiftMonths(time.Date(2018, 5, 15, 0, 0, 0, 0, time.UTC), -6)
	assert.Equal(t, time.Date(2017, 11, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestBuild(t *testing.T) {
	rows := sampleRows()
	f := Filter{PaymentType: "boleto"}

	d := Build(Apply(rows, f), f, DefaultBuildOptions())
	assert.Equal(t, 3, d.Rows)
	assert.Equal(t, 2, d.Overview.TotalOrders)
	assert.Equal(t, "boleto", d.Filter.PaymentType)
	assert.Len(t, d.Insights.PriceHistogram, 50)
	assert.Equal(t, 2, d.RFM.Customers)
}
