package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrFileNotFound is returned when the dataset path does not exist
	ErrFileNotFound = errors.New("file not found")
	// ErrMissingColumn is returned when price or freight_value is absent
	ErrMissingColumn = errors.New("missing required column")
)

// optionalColumns are used when present; their absence is only reported
var optionalColumns = []string{
	models.ColOrderID,
	models.ColCustomerUniqueID,
	models.ColCustomerCity,
	models.ColCustomerState,
	models.ColProductCategoryName,
	models.ColPaymentType,
	models.ColPaymentInstallments,
	models.ColPaymentValue,
	models.ColReviewScore,
	models.ColPurchaseTimestamp,
	models.ColApprovedAt,
	models.ColDeliveredCarrierDate,
	models.ColDeliveredCustomerDate,
	models.ColEstimatedDeliveryDate,
}

// Loader reads the order dataset from CSV or XLSX files
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new loader
func NewLoader() *Loader {
	return &Loader{logger: util.GetLogger()}
}

// Load reads path with a background context
func Load(path string) (*models.Dataset, error) {
	return NewLoader().Load(context.Background(), path)
}

// Load reads, types and derives the dataset stored at path
func (l *Loader) Load(ctx context.Context, path string) (*models.Dataset, error) {
	_, span := util.StartSpan(ctx, "Loader.Load")
	defer span.End()

	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			util.DatasetLoadFailures.WithLabelValues("file_not_found").Inc()
			return nil, fmt.Errorf("%w: %s does not exist, check the file path", ErrFileNotFound, path)
		}
		util.DatasetLoadFailures.WithLabelValues("io_error").Inc()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	t, err := readTable(path)
	if err != nil {
		util.DatasetLoadFailures.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	var missing []string
	for _, col := range models.RequiredColumns {
		if !t.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		util.DatasetLoadFailures.WithLabelValues("missing_column").Inc()
		return nil, fmt.Errorf("%w: %s absent from %s", ErrMissingColumn, strings.Join(missing, ", "), path)
	}

	ds := &models.Dataset{
		Rows: make([]models.OrderRow, 0, t.nrows),
		Stats: models.LoadStats{
			Path:     path,
			RowsRead: t.nrows,
		},
	}
	for _, col := range optionalColumns {
		if !t.has(col) {
			ds.Stats.MissingOptional = append(ds.Stats.MissingOptional, col)
		}
	}

	for i := 0; i < t.nrows; i++ {
		row, unparsed, ok := buildRow(t, i)
		ds.Stats.UnparsedDates += unparsed
		if !ok {
			ds.Stats.SkippedRows++
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.Stats.RowsKept = len(ds.Rows)
	ds.Stats.Duration = time.Since(start)
	ds.Stats.LoadedAt = time.Now()

	if ds.Stats.SkippedRows > 0 {
		l.logger.Warn("Rows with unparseable price or freight_value skipped",
			zap.String("path", path),
			zap.Int("skipped", ds.Stats.SkippedRows))
	}
	if len(ds.Stats.MissingOptional) > 0 {
		l.logger.Warn("Optional columns absent from dataset",
			zap.String("path", path),
			zap.Strings("columns", ds.Stats.MissingOptional))
	}

	util.DatasetRowsLoaded.Set(float64(ds.Stats.RowsKept))
	util.DatasetLoadDuration.Observe(ds.Stats.Duration.Seconds())

	l.logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("rows_read", ds.Stats.RowsRead),
		zap.Int("rows_kept", ds.Stats.RowsKept),
		zap.Int("unparsed_dates", ds.Stats.UnparsedDates),
		zap.Duration("duration", ds.Stats.Duration))

	return ds, nil
}

func readTable(path string) (*table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSXTable(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return readCSVTable(f)
	}
}

// buildRow types row i. ok is false when price or freight cannot be parsed.
func buildRow(t *table, i int) (row models.OrderRow, unparsedDates int, ok bool) {
	price, okPrice := parseFloat(t.cell(models.ColPrice, i))
	freight, okFreight := parseFloat(t.cell(models.ColFreightValue, i))

	row = models.OrderRow{
		OrderID:             parseString(t.cell(models.ColOrderID, i)),
		CustomerUniqueID:    parseString(t.cell(models.ColCustomerUniqueID, i)),
		CustomerCity:        parseString(t.cell(models.ColCustomerCity, i)),
		CustomerState:       parseString(t.cell(models.ColCustomerState, i)),
		ProductCategoryName: parseString(t.cell(models.ColProductCategoryName, i)),
		PaymentType:         parseString(t.cell(models.ColPaymentType, i)),
		PaymentInstallments: parseOptionalInt(t.cell(models.ColPaymentInstallments, i)),
		PaymentValue:        parseOptionalFloat(t.cell(models.ColPaymentValue, i)),
		Price:               price,
		FreightValue:        freight,
		ReviewScore:         parseOptionalFloat(t.cell(models.ColReviewScore, i)),
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{models.ColPurchaseTimestamp, &row.PurchasedAt},
		{models.ColApprovedAt, &row.ApprovedAt},
		{models.ColDeliveredCarrierDate, &row.DeliveredCarrierAt},
		{models.ColDeliveredCustomerDate, &row.DeliveredCustomerAt},
		{models.ColEstimatedDeliveryDate, &row.EstimatedDeliveryAt},
	}
	for _, d := range dates {
		v, parsed := parseDate(t.cell(d.col, i))
		if !parsed {
			unparsedDates++
		}
		*d.dst = v
	}

	if !okPrice || !okFreight {
		return row, unparsedDates, false
	}

	row.Derive()
	return row, unparsedDates, true
}
