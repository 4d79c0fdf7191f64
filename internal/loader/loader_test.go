package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const header = "order_id,customer_unique_id,customer_city,customer_state,product_category_name," +
	"payment_type,payment_installments,payment_value,price,freight_value,review_score," +
	"order_purchase_timestamp,order_approved_at,order_delivered_carrier_date," +
	"order_delivered_customer_date,order_estimated_delivery_date"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	csv := strings.Join([]string{
		header,
		"o1,c1,sao paulo,SP,toys,credit_card,3,119.9,99.9,20.0,5,2017-10-02 10:56:33,2017-10-02 11:07:15,2017-10-04 19:55:00,2017-10-10 21:25:13,2017-10-18 00:00:00",
		"o2,c2,rio de janeiro,RJ,books,boleto,1.0,,30.5,4.25,,2018-07-24 20:41:37,,,,2018-08-13 00:00:00",
		"o3,c3,campinas,SP,garden,voucher,,10,abc,1,4,not-a-date,,,,",
	}, "\n")
	path := writeFile(t, "orders.csv", csv)

	ds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Stats.RowsRead)
	assert.Equal(t, 2, ds.Stats.RowsKept)
	assert.Equal(t, 1, ds.Stats.SkippedRows)
	assert.Equal(t, 1, ds.Stats.UnparsedDates)
	assert.Empty(t, ds.Stats.MissingOptional)
	require.Len(t, ds.Rows, 2)

	first := ds.Rows[0]
	assert.Equal(t, "o1", first.OrderID)
	assert.Equal(t, "SP", first.CustomerState)
	assert.Equal(t, 99.9+20.0, first.TotalValue)
	require.NotNil(t, first.DeliveryTime)
	assert.Equal(t, 8, *first.DeliveryTime)
	require.NotNil(t, first.PaymentInstallments)
	assert.Equal(t, 3, *first.PaymentInstallments)
	require.NotNil(t, first.ReviewScore)
	assert.Equal(t, 5.0, *first.ReviewScore)
	assert.Equal(t, "2017-10-02 10:56:33", first.PurchasedAt.Format("2006-01-02 15:04:05"))

	second := ds.Rows[1]
	assert.Equal(t, 30.5+4.25, second.TotalValue)
	assert.Nil(t, second.DeliveryTime)
	assert.Nil(t, second.ReviewScore)
	assert.Nil(t, second.PaymentValue)
	assert.True(t, second.ApprovedAt.IsZero())
	require.NotNil(t, second.PaymentInstallments)
	assert.Equal(t, 1, *second.PaymentInstallments)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Contains(t, err.Error(), "file not found")
}

func TestLoadMissingPriceColumn(t *testing.T) {
	path := writeFile(t, "orders.csv", "order_id,freight_value\no1,2.5\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "missing required column")
	assert.Contains(t, err.Error(), "price")
}

func TestLoadMissingFreightColumn(t *testing.T) {
	path := writeFile(t, "orders.csv", "order_id,price\no1,2.5\n")

	_, err := Load(path)

	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "freight_value")
}

func TestLoadReportsMissingOptionalColumns(t *testing.T) {
	path := writeFile(t, "orders.csv", "order_id,price,freight_value\no1,10,2\no2,5,1\n")

	ds, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, ds.Rows, 2)
	assert.Contains(t, ds.Stats.MissingOptional, "customer_state")
	assert.True(t, ds.Rows[0].PurchasedAt.IsZero())
	assert.Equal(t, 12.0, ds.Rows[0].TotalValue)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Orders"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{
		"order_id", "customer_unique_id", "price", "freight_value", "order_purchase_timestamp",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{
		"o1", "c1", "10.5", "1.5", "2018-01-01 00:00:00",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{
		"o2", "c2", "3", "1",
	}))

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))

	ds, err := Load(path)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 2)
	assert.Equal(t, 12.0, ds.Rows[0].TotalValue)
	assert.False(t, ds.Rows[0].PurchasedAt.IsZero())
	assert.True(t, ds.Rows[1].PurchasedAt.IsZero())
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2017-10-02 10:56:33", "2017-10-02T10:56:33Z", "2017-10-02", "2017/10/02 10:56"} {
		v, ok := parseDate(s)
		assert.True(t, ok, s)
		assert.Equal(t, 2017, v.Year(), s)
	}

	v, ok := parseDate("")
	assert.True(t, ok)
	assert.True(t, v.IsZero())

	v, ok = parseDate("garbage")
	assert.False(t, ok)
	assert.True(t, v.IsZero())
}

func TestParseOptionalInt(t *testing.T) {
	assert.Equal(t, 2, *parseOptionalInt("2"))
	assert.Equal(t, 2, *parseOptionalInt("2.0"))
	assert.Nil(t, parseOptionalInt("2.5"))
	assert.Nil(t, parseOptionalInt("NaN"))
}
