package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage/client-engine/api"
	"github.com/vantage/client-engine/segments"
	"github.com/vantage/client-engine/stats"
	"github.com/vantage/client-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testClientsCSV = `ID,GPI_AGE,GPI_CUSTOMER_TYPE_DESC,DEM_SEG,FIN_SEG,TRANS_SEG,PROD_SEG,DIG_SEG,REL_SEG,DEP_AVG_BALANCE_AMT,TRX_POS_CNT,PTS_IB_FLAG,CHNL_IB_LOGINS_CNT
C001,34,Mass,1,2,0,1,3,2,1200.5,12,1,14
C002,15,Youth,1,,0,,3,,50,2,0,2
`

const testCatalogCSV = `ID,SEG_ID,CLUS_ID,PROD,ELIG,DESCR,LINK
P001,0,1,Junior Account,0,Starter account,
P002,0,1,Savings Plus,1,Premium savings,
O001,0,1,Welcome Bonus,0,Bonus for new clients,https://bank.example/welcome
`

type testServer struct {
	srv   *httptest.Server
	token string
}

func newTestServer(t *testing.T, mortgageURL string) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	_, err = store.LoadClients(ctx, strings.NewReader(testClientsCSV))
	require.NoError(t, err)
	_, _, err = store.LoadCatalog(ctx, strings.NewReader(testCatalogCSV))
	require.NoError(t, err)

	statsSvc, err := stats.New(ctx, store)
	require.NoError(t, err)

	auth := api.NewAuth("test-secret", time.Hour)
	mortgage := api.NewMortgageClient(mortgageURL, "test-api-key")
	handler := api.NewHandler(store, statsSvc, auth, mortgage, map[string]string{"admin": "1234"})

	srv := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(srv.Close)

	token, err := auth.IssueToken("admin")
	require.NoError(t, err)

	return &testServer{srv: srv, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_OperatorCredentials(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Post(ts.srv.URL+"/login", "application/json",
		strings.NewReader(`{"username":"admin","password":"1234"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[api.TokenResponse](t, resp)
	assert.NotEmpty(t, token.AccessToken)
}

func TestLogin_BadPassword(t *testing.T) {
	ts := newTestServer(t, "")

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"admin","password":""}`,
		`{"username":"nobody","password":"1234"}`,
	} {
		resp, err := http.Post(ts.srv.URL+"/login", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "body %s", body)
	}
}

func TestLogin_ClientID(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Post(ts.srv.URL+"/login", "application/json",
		strings.NewReader(`{"client_id":"C001"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.srv.URL+"/login", "application/json",
		strings.NewReader(`{"client_id":"C999"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_MissingCredentials(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Post(ts.srv.URL+"/login", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// AUTH GATING TESTS
// =============================================================================

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, "")

	// GIVEN no Authorization header
	resp, err := http.Get(ts.srv.URL + "/api/clients/C001")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// GIVEN a garbage token
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/clients/C001", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// CLIENT ENDPOINT TESTS
// =============================================================================

func TestGetClient(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record := decode[map[string]any](t, resp)
	assert.Equal(t, "C001", record["ID"])
	assert.Equal(t, "Mass", record["GPI_CUSTOMER_TYPE_DESC"])
}

func TestGetClient_Unknown(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListClients_Pagination(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients?page=2&page_size=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[api.ClientListResponse](t, resp)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Data, 1)
}

func TestListClients_Filter(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients?GPI_CUSTOMER_TYPE_DESC=Youth", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[api.ClientListResponse](t, resp)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "C002", list.Data[0]["ID"])
}

func TestListClients_UnknownFilterColumn(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients?NO_SUCH_COLUMN=1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSampleClients(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/sample?count=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sample := decode[api.SampleIDsResponse](t, resp)
	assert.Equal(t, []string{"C001"}, sample.IDs)
}

func TestInvalidateCache(t *testing.T) {
	ts := newTestServer(t, "")

	// Warm the cache with one record
	resp := ts.do(t, http.MethodGet, "/api/clients/C001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/clients/cache/invalidate",
		api.InvalidateCacheRequest{ClientID: "C001"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[api.CacheStatusResponse](t, resp)
	assert.Equal(t, 0, status.Cached)
}

// =============================================================================
// RECOMMENDATION ENDPOINT TESTS
// =============================================================================

func TestGetClientProducts_Adult(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C001/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recs := decode[api.RecommendationsResponse](t, resp)
	assert.Equal(t, "C001", recs.ClientID)
	require.Len(t, recs.Products, 2)

	names := []string{recs.Products[0].Prod, recs.Products[1].Prod}
	assert.ElementsMatch(t, []string{"Junior Account", "Savings Plus"}, names)
}

func TestGetClientProducts_MinorFiltered(t *testing.T) {
	// C002 is 15; only minor-eligible entries may come back.

	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C002/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recs := decode[api.RecommendationsResponse](t, resp)
	require.Len(t, recs.Products, 1)
	assert.Equal(t, "Junior Account", recs.Products[0].Prod)
	assert.Equal(t, segments.Demographic.Column(), recs.Products[0].Segment)
}

func TestGetClientOffers(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C001/offers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recs := decode[api.RecommendationsResponse](t, resp)
	require.Len(t, recs.Offers, 1)
	assert.Equal(t, "Welcome Bonus", recs.Offers[0].Prod)
	assert.Equal(t, "https://bank.example/welcome", recs.Offers[0].Link)
}

func TestGetClientProducts_UnknownClient(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/C999/products", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// STATISTICS ENDPOINT TESTS
// =============================================================================

func TestStatisticsEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/clients/segments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	segs := decode[map[string]int64](t, resp)
	assert.Equal(t, map[string]int64{"Mass": 1, "Youth": 1}, segs)

	resp = ts.do(t, http.MethodGet, "/api/clients/balances", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balances := decode[map[string]float64](t, resp)
	assert.Equal(t, map[string]float64{"DEP": 625.25}, balances)

	resp = ts.do(t, http.MethodGet, "/api/clients/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tx := decode[stats.TransactionStats](t, resp)
	assert.Equal(t, map[string]float64{"POS": 7}, tx.Counts)

	resp = ts.do(t, http.MethodGet, "/api/clients/digital-engagement", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	engagement := decode[map[string]float64](t, resp)
	assert.Equal(t, 50.0, engagement["PTS_IB"])
	assert.Equal(t, 8.0, engagement["AVG_IB_LOGINS"])
}

// =============================================================================
// MORTGAGE ENDPOINT TESTS
// =============================================================================

func TestCalculateMortgage_Proxied(t *testing.T) {
	// GIVEN an upstream that answers with a canned payload
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "200000", r.URL.Query().Get("loan_amount"))
		fmt.Fprint(w, `{"monthly_payment":{"total":1200}}`)
	}))
	defer upstream.Close()

	ts := newTestServer(t, upstream.URL)

	// WHEN a valid request goes through the proxy
	resp := ts.do(t, http.MethodPost, "/calculate-mortgage", map[string]any{
		"loan_amount":   200000,
		"interest_rate": 3.5,
	})

	// THEN the upstream body is relayed untouched
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"monthly_payment":{"total":1200}}`, string(body))
}

func TestCalculateMortgage_Validation(t *testing.T) {
	ts := newTestServer(t, "")

	// Missing interest_rate
	resp := ts.do(t, http.MethodPost, "/calculate-mortgage", map[string]any{
		"loan_amount": 200000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// home_value without downpayment
	resp = ts.do(t, http.MethodPost, "/calculate-mortgage", map[string]any{
		"interest_rate": 3.5,
		"home_value":    250000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculateMortgage_UpstreamError(t *testing.T) {
	// GIVEN an upstream that rejects the request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"interest_rate out of range"}`)
	}))
	defer upstream.Close()

	ts := newTestServer(t, upstream.URL)

	resp := ts.do(t, http.MethodPost, "/calculate-mortgage", map[string]any{
		"loan_amount":   200000,
		"interest_rate": 99.9,
	})

	// THEN the failure surfaces as a gateway error with upstream details
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "External API error", body["error"])
}
