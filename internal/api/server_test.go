package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/logistix/internal/backend"
	"github.com/runger/logistix/internal/domain"
	"github.com/runger/logistix/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStore(t *testing.T, customers int) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rows := make([]domain.Customer, customers)
	for i := range rows {
		rows[i] = domain.Customer{
			ID:     fmt.Sprintf("cust-%03d", i),
			Code:   fmt.Sprintf("C%03d", i),
			Name:   fmt.Sprintf("Customer %03d", i),
			City:   "Hamburg",
			Active: true,
		}
	}
	require.NoError(t, store.InsertCustomers(context.Background(), rows))
	return store
}

func newTestServer(t *testing.T, store storage.Store, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	srv := httptest.NewServer(NewServer(store, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestList_Pagination(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 75))

	var body backend.ListResponse[domain.Customer]
	resp := getJSON(t, srv.URL+"/api/v1/customers?page=3&limit=30", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Len(t, body.Items, 15)
	assert.Equal(t, "Customer 060", body.Items[0].Name)
	assert.Equal(t, backend.Pagination{TotalPages: 3, CurrentPage: 3, TotalItems: 75, Limit: 30}, body.Pagination)
}

func TestList_Defaults(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 40))

	var body backend.ListResponse[domain.Customer]
	getJSON(t, srv.URL+"/api/v1/customers", &body)

	assert.Len(t, body.Items, storage.DefaultLimit)
	assert.Equal(t, 1, body.Pagination.CurrentPage)
	assert.Equal(t, 2, body.Pagination.TotalPages)
}

func TestList_Search(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 40))

	for _, param := range []string{"search", "q", "name"} {
		t.Run(param, func(t *testing.T) {
			var body backend.ListResponse[domain.Customer]
			getJSON(t, srv.URL+"/api/v1/customers?"+param+"=customer%2003", &body)
			assert.Len(t, body.Items, 10)
			assert.Equal(t, 10, body.Pagination.TotalItems)
		})
	}
}

func TestList_EmptyResultIsArray(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 5))

	resp, err := http.Get(srv.URL + "/api/v1/vendors")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"items":[]`)
	assert.Contains(t, string(data), `"totalPages":0`)
}

func TestList_BadRequests(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 1))

	tests := []struct {
		path   string
		status int
	}{
		{"/api/v1/customers?page=0", http.StatusBadRequest},
		{"/api/v1/customers?page=abc", http.StatusBadRequest},
		{"/api/v1/customers?page=4611686018427387905&limit=30", http.StatusBadRequest},
		{"/api/v1/customers?page=99999999999999999999", http.StatusBadRequest},
		{"/api/v1/customers?limit=-1", http.StatusBadRequest},
		{"/api/v1/orders", http.StatusNotFound},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var body ErrorBody
			resp := getJSON(t, srv.URL+tt.path, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestList_PagePastEndIsEmpty(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 75))

	for _, page := range []int{4, 1000, storage.MaxPage} {
		t.Run(fmt.Sprint(page), func(t *testing.T) {
			resp, err := http.Get(fmt.Sprintf("%s/api/v1/customers?page=%d&limit=30", srv.URL, page))
			require.NoError(t, err)
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, string(data), `"items":[]`)

			var body backend.ListResponse[domain.Customer]
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, backend.Pagination{TotalPages: 3, CurrentPage: page, TotalItems: 75, Limit: 30}, body.Pagination)
		})
	}
}

func TestList_LimitClamped(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 5))

	var body backend.ListResponse[domain.Customer]
	getJSON(t, srv.URL+"/api/v1/customers?limit=5000", &body)
	assert.Equal(t, storage.MaxLimit, body.Pagination.Limit)
}

func TestRequestID_EchoedOrGenerated(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 1))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))

	resp = getJSON(t, srv.URL+"/healthz", nil)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 1))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/customers", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetrics_CountsRequests(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 3))

	getJSON(t, srv.URL+"/api/v1/customers", nil)
	getJSON(t, srv.URL+"/api/v1/customers?page=0", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `logistix_api_requests_total{code="200",route="list"} 1`)
	assert.Contains(t, text, `logistix_api_requests_total{code="400",route="list"} 1`)
	assert.Contains(t, text, `logistix_api_items_served_total{resource="customers"} 3`)
	assert.Contains(t, text, "logistix_api_request_duration_seconds_bucket")
}

func TestLatency_DelaysResponses(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 1), WithLatency(50*time.Millisecond))

	start := time.Now()
	getJSON(t, srv.URL+"/api/v1/customers", nil)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRecovery_PanicReturns500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery(quietLogger()), RequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

// The REST client and the server agree on the wire contract.
func TestClientRoundTrip(t *testing.T) {
	srv := newTestServer(t, newTestStore(t, 65))

	c, err := backend.New(srv.URL+BasePath, backend.WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	page, err := c.Customers(ctx, 1, 30, "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 30)

	page, err = c.Customers(ctx, 1, 30, "customer 06")
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 5)

	_, err = backend.List[domain.Customer](ctx, c, backend.Resource{Path: "orders"}, 1, 30, "")
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Message, "orders"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(newTestStore(t, 1), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
