package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"order-analytics/internal/analytics"
	"order-analytics/internal/loader"
	"order-analytics/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = `order_id,customer_unique_id,customer_city,customer_state,product_category_name,payment_type,payment_installments,payment_value,price,freight_value,review_score,order_purchase_timestamp,order_delivered_customer_date
o1,c1,sao paulo,SP,toys,credit_card,2,15.0,10.0,5.0,5,2018-01-01 10:00:00,2018-01-09 12:00:00
o2,c1,sao paulo,SP,toys,boleto,1,15.0,12.0,3.0,4,2018-01-05 09:00:00,2018-01-10 09:00:00
o3,c2,rio de janeiro,RJ,books,credit_card,3,20.0,20.0,0.0,3,2018-01-03 08:00:00,
`

func setupRouter(t *testing.T, load bool) (*gin.Engine, *service.DashboardService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(ordersCSV), 0o644))

	svc := service.NewDashboardService(service.Config{
		DataFile: path,
		Build:    analytics.DefaultBuildOptions(),
	}, loader.NewLoader(), nil, nil, nil)
	if load {
		require.NoError(t, svc.Load(context.Background()))
	}

	router := gin.New()
	NewHandler(svc, 5).SetupRoutes(router)
	return router, svc
}

func doRequest(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doRequest(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessBeforeAndAfterLoad(t *testing.T) {
	router, svc := setupRouter(t, false)

	w := doRequest(router, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, svc.Load(context.Background()))
	w = doRequest(router, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDashboard(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/dashboard?category=toys")
	require.Equal(t, http.StatusOK, w.Code)

	var d analytics.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 2, d.Rows)
	assert.Equal(t, 2, d.Overview.TotalOrders)
	assert.InDelta(t, 30.0, d.Overview.TotalRevenue, 1e-9)
	require.NotNil(t, d.Overview.AvgDeliveryTime)
	assert.InDelta(t, 6.5, *d.Overview.AvgDeliveryTime, 1e-9)
}

func TestGetOverviewWithDateRange(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/overview?from=2018-01-02&to=2018-01-04")
	require.Equal(t, http.StatusOK, w.Code)

	var o analytics.OverviewMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, 1, o.TotalOrders)
	assert.InDelta(t, 20.0, o.TotalRevenue, 1e-9)
	assert.Nil(t, o.AvgDeliveryTime)
}

func TestInvalidFilter(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/dashboard?from=2018-02-01&to=2018-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/daily?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOptions(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/options")
	require.Equal(t, http.StatusOK, w.Code)

	var opts analytics.FilterOptions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
	assert.Equal(t, []string{"All", "toys", "books"}, opts.Categories)
	assert.Equal(t, []string{"All", "credit_card", "boleto"}, opts.PaymentTypes)
}

func TestGetRFM(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/rfm?n=1")
	require.Equal(t, http.StatusOK, w.Code)

	var leaders analytics.RFMLeaders
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leaders))
	assert.Equal(t, 2, leaders.Customers)
	require.Len(t, leaders.MostFrequent, 1)
	assert.Equal(t, "c1", leaders.MostFrequent[0].CustomerUniqueID)
	assert.InDelta(t, 30.0, leaders.MostFrequent[0].Monetary, 1e-9)

	w = doRequest(router, http.MethodGet, "/api/v1/rfm?n=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportRFMCSV(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/rfm.csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "customer_unique_id,recency,frequency,monetary", lines[0])
	assert.Equal(t, "c1,0,2,30", lines[1])
	assert.Equal(t, "c2,2,1,20", lines[2])
}

func TestExportWorkbook(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestSnapshotsDisabled(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/snapshots")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReload(t *testing.T) {
	router, svc := setupRouter(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/reload")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), svc.Version())
}

func TestDashboardPage(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/?category=books")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "E-commerce Order Analytics")
	assert.Contains(t, body, `value="2018-01-01"`)
	assert.Contains(t, body, "rio de janeiro")
	assert.NotContains(t, body, "sao paulo")
}

func TestDashboardPageBeforeLoad(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doRequest(router, http.MethodGet, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not loaded")
}
