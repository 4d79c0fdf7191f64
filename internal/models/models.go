package models

import "time"

// Column names of the order dataset
const (
	ColOrderID             = "order_id"
	ColCustomerUniqueID    = "customer_unique_id"
	ColCustomerCity        = "customer_city"
	ColCustomerState       = "customer_state"
	ColProductCategoryName = "product_category_name"
	ColPaymentType         = "payment_type"
	ColPaymentInstallments = "payment_installments"
	ColPaymentValue        = "payment_value"
	ColPrice               = "price"
	ColFreightValue        = "freight_value"
	ColReviewScore         = "review_score"

	ColPurchaseTimestamp     = "order_purchase_timestamp"
	ColApprovedAt            = "order_approved_at"
	ColDeliveredCarrierDate  = "order_delivered_carrier_date"
	ColDeliveredCustomerDate = "order_delivered_customer_date"
	ColEstimatedDeliveryDate = "order_estimated_delivery_date"
)

// RequiredColumns must be present for total_value to be derived
var RequiredColumns = []string{ColPrice, ColFreightValue}

// OrderRow represents one purchase line of the dataset
type OrderRow struct {
	OrderID             string   `json:"order_id"`
	CustomerUniqueID    string   `json:"customer_unique_id"`
	CustomerCity        string   `json:"customer_city,omitempty"`
	CustomerState       string   `json:"customer_state,omitempty"`
	ProductCategoryName string   `json:"product_category_name"`
	PaymentType         string   `json:"payment_type"`
	PaymentInstallments *int     `json:"payment_installments"`
	PaymentValue        *float64 `json:"payment_value"`
	Price               float64  `json:"price"`
	FreightValue        float64  `json:"freight_value"`
	ReviewScore         *float64 `json:"review_score"`

	PurchasedAt         time.Time `json:"order_purchase_timestamp"`
	ApprovedAt          time.Time `json:"order_approved_at"`
	DeliveredCarrierAt  time.Time `json:"order_delivered_carrier_date"`
	DeliveredCustomerAt time.Time `json:"order_delivered_customer_date"`
	EstimatedDeliveryAt time.Time `json:"order_estimated_delivery_date"`

	// Derived at load time
	TotalValue   float64 `json:"total_value"`
	DeliveryTime *int    `json:"delivery_time"`
}

// Derive computes total_value and delivery_time
func (r *OrderRow) Derive() {
	r.TotalValue = r.Price + r.FreightValue
	r.DeliveryTime = nil
	if !r.PurchasedAt.IsZero() && !r.DeliveredCustomerAt.IsZero() {
		days := FloorDays(r.DeliveredCustomerAt.Sub(r.PurchasedAt))
		r.DeliveryTime = &days
	}
}

// PurchaseDate returns the calendar date of the purchase, zero if unknown
func (r *OrderRow) PurchaseDate() time.Time {
	if r.PurchasedAt.IsZero() {
		return time.Time{}
	}
	return DateOf(r.PurchasedAt)
}

// FloorDays converts a duration to whole days, rounding toward negative infinity
func FloorDays(d time.Duration) int {
	day := 24 * time.Hour
	days := d / day
	if d%day < 0 {
		days--
	}
	return int(days)
}

// DateOf truncates t to midnight UTC of its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LoadStats describes a completed dataset load
type LoadStats struct {
	Path            string        `json:"path"`
	RowsRead        int           `json:"rows_read"`
	RowsKept        int           `json:"rows_kept"`
	SkippedRows     int           `json:"skipped_rows"`
	UnparsedDates   int           `json:"unparsed_dates"`
	MissingOptional []string      `json:"missing_optional_columns,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	LoadedAt        time.Time     `json:"loaded_at"`
}

// Dataset is an immutable, fully typed order table
type Dataset struct {
	Rows  []OrderRow
	Stats LoadStats
}

// RFMRecord holds recency, frequency and monetary values of one customer
type RFMRecord struct {
	CustomerUniqueID string  `json:"customer_unique_id" db:"customer_unique_id"`
	Recency          *int    `json:"recency" db:"recency"`
	Frequency        int     `json:"frequency" db:"frequency"`
	Monetary         float64 `json:"monetary" db:"monetary"`
}

// RFMSnapshot is a persisted RFM computation
type RFMSnapshot struct {
	ID             string      `db:"id" json:"id"`
	DatasetVersion int64       `db:"dataset_version" json:"dataset_version"`
	FilterJSON     string      `db:"filter" json:"filter"`
	CustomerCount  int         `db:"customer_count" json:"customer_count"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	Records        []RFMRecord `db:"-" json:"records,omitempty"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
