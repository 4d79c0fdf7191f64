package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"order-analytics/internal/models"
)

// All disables a category or payment-type predicate
const All = "All"

const dateLayout = "2006-01-02"

// ErrInvalidFilter is returned for malformed filter parameters
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects rows by inclusive purchase date range, category and
// payment type. Zero values disable each predicate.
type Filter struct {
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Category    string     `json:"category,omitempty"`
	PaymentType string     `json:"payment_type,omitempty"`
}

// ParseFilter builds a filter from request parameters. Dates use YYYY-MM-DD.
func ParseFilter(from, to, category, payment string) (Filter, error) {
	var f Filter

	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: from %q: %v", ErrInvalidFilter, from, err)
		}
		f.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: to %q: %v", ErrInvalidFilter, to, err)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return Filter{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter, from, to)
	}

	f.Category = normalizeChoice(category)
	f.PaymentType = normalizeChoice(payment)
	return f, nil
}

func normalizeChoice(s string) string {
	s = strings.TrimSpace(s)
	if s == All {
		return ""
	}
	return s
}

// Active reports whether any predicate is enabled
func (f Filter) Active() bool {
	return f.From != nil || f.To != nil || f.Category != "" || f.PaymentType != ""
}

// Key is a canonical representation used for cache keys
func (f Filter) Key() string {
	from, to := "", ""
	if f.From != nil {
		from = f.From.Format(dateLayout)
	}
	if f.To != nil {
		to = f.To.Format(dateLayout)
	}
	return fmt.Sprintf("from=%s|to=%s|category=%s|payment=%s", from, to, f.Category, f.PaymentType)
}

// Match reports whether r satisfies every active predicate
func (f Filter) Match(r *models.OrderRow) bool {
	if f.From != nil || f.To != nil {
		day := r.PurchaseDate()
		if day.IsZero() {
			return false
		}
		if f.From != nil && day.Before(models.DateOf(*f.From)) {
			return false
		}
		if f.To != nil && day.After(models.DateOf(*f.To)) {
			return false
		}
	}
	if f.Category != "" && f.Category != All && r.ProductCategoryName != f.Category {
		return false
	}
	if f.PaymentType != "" && f.PaymentType != All && r.PaymentType != f.PaymentType {
		return false
	}
	return true
}

// Apply returns the rows matching f in source order
func Apply(rows []models.OrderRow, f Filter) []models.OrderRow {
	out := make([]models.OrderRow, 0, len(rows))
	for i := range rows {
		if f.Match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// Partition splits rows into matching and non-matching sets, both in source order
func Partition(rows []models.OrderRow, f Filter) (in, out []models.OrderRow) {
	in = make([]models.OrderRow, 0, len(rows))
	out = make([]models.OrderRow, 0)
	for i := range rows {
		if f.Match(&rows[i]) {
			in = append(in, rows[i])
		} else {
			out = append(out, rows[i])
		}
	}
	return in, out
}

// FilterOptions lists the sidebar choices for a dataset
type FilterOptions struct {
	Categories   []string   `json:"categories"`
	PaymentTypes []string   `json:"payment_types"`
	MinDate      *time.Time `json:"min_date"`
	MaxDate      *time.Time `json:"max_date"`
}

// Options returns All followed by distinct values in first-seen order, and
// the purchase date bounds used as the default range
func Options(rows []models.OrderRow) FilterOptions {
	opts := FilterOptions{
		Categories:   []string{All},
		PaymentTypes: []string{All},
	}
	seenCategory := make(map[string]bool)
	seenPayment := make(map[string]bool)

	for i := range rows {
		r := &rows[i]
		if r.ProductCategoryName != "" && !seenCategory[r.ProductCategoryName] {
			seenCategory[r.ProductCategoryName] = true
			opts.Categories = append(opts.Categories, r.ProductCategoryName)
		}
		if r.PaymentType != "" && !seenPayment[r.PaymentType] {
			seenPayment[r.PaymentType] = true
			opts.PaymentTypes = append(opts.PaymentTypes, r.PaymentType)
		}
		if day := r.PurchaseDate(); !day.IsZero() {
			if opts.MinDate == nil || day.Before(*opts.MinDate) {
				d := day
				opts.MinDate = &d
			}
			if opts.MaxDate == nil || day.After(*opts.MaxDate) {
				d := day
				opts.MaxDate = &d
			}
		}
	}
	return opts
}
