package export

import (
	"fmt"
	"io"

	"order-analytics/internal/analytics"
	"order-analytics/internal/models"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook, in order
const (
	SheetOverview     = "Overview"
	SheetDaily        = "Daily"
	SheetStates       = "States"
	SheetCities       = "Cities"
	SheetCategories   = "Categories"
	SheetPayments     = "Payments"
	SheetInstallments = "Installments"
	SheetRFM          = "RFM"
)

const dateLayout = "2006-01-02"

// WriteWorkbook writes one sheet per dashboard view as an xlsx document
func WriteWorkbook(w io.Writer, d *analytics.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), SheetOverview)

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetOverview, overviewRows(d)},
		{SheetDaily, dailyRows(d.Daily)},
		{SheetStates, countRows("state", d.Demographics.States)},
		{SheetCities, countRows("city", d.Demographics.TopCities)},
		{SheetCategories, categoryRows(d.Categories)},
		{SheetPayments, paymentRows(d.Payments.ByType)},
		{SheetInstallments, installmentRows(d.Payments.ByInstallments)},
		{SheetRFM, rfmRows(d.RFM)},
	}

	for _, sheet := range sheets {
		if sheet.name != SheetOverview {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return fmt.Errorf("failed to add sheet %s: %w", sheet.name, err)
			}
		}
		for i, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return fmt.Errorf("failed to write sheet %s: %w", sheet.name, err)
			}
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func overviewRows(d *analytics.Dashboard) [][]interface{} {
	return [][]interface{}{
		{"metric", "value"},
		{"rows", d.Rows},
		{"total_orders", d.Overview.TotalOrders},
		{"total_revenue", d.Overview.TotalRevenue},
		{"avg_order_value", optional(d.Overview.AvgOrderValue)},
		{"avg_delivery_time", optional(d.Overview.AvgDeliveryTime)},
	}
}

func dailyRows(points []analytics.DailyPoint) [][]interface{} {
	rows := [][]interface{}{{"date", "orders", "revenue"}}
	for _, p := range points {
		rows = append(rows, []interface{}{p.Date.Format(dateLayout), p.Orders, p.Revenue})
	}
	return rows
}

func countRows(key string, stats []analytics.CountStat) [][]interface{} {
	rows := [][]interface{}{{key, "customers"}}
	for _, s := range stats {
		rows = append(rows, []interface{}{s.Key, s.Count})
	}
	return rows
}

func categoryRows(stats []analytics.CategoryStat) [][]interface{} {
	rows := [][]interface{}{{"category", "total_value", "avg_delivery_time", "avg_review_score"}}
	for _, s := range stats {
		rows = append(rows, []interface{}{s.Category, s.TotalValue, optional(s.AvgDeliveryTime), optional(s.AvgReviewScore)})
	}
	return rows
}

func paymentRows(stats []analytics.PaymentTypeStat) [][]interface{} {
	rows := [][]interface{}{{"payment_type", "total_value", "avg_review_score"}}
	for _, s := range stats {
		rows = append(rows, []interface{}{s.PaymentType, s.TotalValue, optional(s.AvgReviewScore)})
	}
	return rows
}

func installmentRows(stats []analytics.InstallmentStat) [][]interface{} {
	rows := [][]interface{}{{"installments", "avg_value", "avg_review_score"}}
	for _, s := range stats {
		rows = append(rows, []interface{}{s.Installments, s.AvgValue, optional(s.AvgReviewScore)})
	}
	return rows
}

func rfmRows(leaders analytics.RFMLeaders) [][]interface{} {
	rows := [][]interface{}{{"ranking", "customer_unique_id", "recency", "frequency", "monetary"}}
	rankings := []struct {
		name    string
		records []models.RFMRecord
	}{
		{"most_recent", leaders.MostRecent},
		{"most_frequent", leaders.MostFrequent},
		{"highest_value", leaders.HighestValue},
	}
	for _, ranking := range rankings {
		for _, r := range ranking.records {
			var recency interface{}
			if r.Recency != nil {
				recency = *r.Recency
			}
			rows = append(rows, []interface{}{ranking.name, r.CustomerUniqueID, recency, r.Frequency, r.Monetary})
		}
	}
	return rows
}
