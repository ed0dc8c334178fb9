package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/config"
	apierrors "tradepulse/internal/errors"
	"tradepulse/internal/services"
)

const sampleCSV = `Reporter,Partner,Flow,Year,Month,Tons
Kenya,Uganda,Export,2012,Jan,10
Kenya,Uganda,Export,2012,Feb,20
Kenya,Uganda,Export,2012,Mar,30
Tanzania,Uganda,Export,2012,Jan,5
Tanzania,Uganda,Export,2012,Feb,15
Tanzania,Uganda,Export,2012,Mar,25
`

// testServer wires the real service behind the handlers; transport tests
// exercise the full path from request decoding to problem responses.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := services.NewPipelineService(config.Default(), logger, nil)
	require.NoError(t, err)

	errorHandler := apierrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Mount("/api/dataset", NewDatasetHandler(svc, logger, errorHandler, 1<<20).Routes())
	r.Mount("/api/pipeline", NewPipelineHandler(svc, logger, errorHandler).Routes())
	r.Mount("/api/export", NewExportHandler(svc, logger, errorHandler).Routes())
	r.Mount("/api/health", NewHealthHandler("test").Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func uploadCSV(t *testing.T, server *httptest.Server, content string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "trades.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/dataset", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestUploadAndInfo(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp, err := http.Get(server.URL + "/api/dataset")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info services.DatasetInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, 6, info.Rows)
	assert.Contains(t, info.Columns, "Period")
}

func TestInfo_NoDatasetIs409Problem(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/api/dataset")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "DATASET_NOT_LOADED", problem["error_code"])
}

func TestUpload_MissingFileIs400(t *testing.T) {
	server := testServer(t)

	resp, err := http.Post(server.URL+"/api/dataset", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_MalformedCSVIs400Problem(t *testing.T) {
	server := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "bad.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Reporter,Tons\nKenya,1,extra\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/dataset", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "/errors/dataset/parse", problem["type"])
}

func TestAggregateEndpoint(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp := postJSON(t, server.URL+"/api/pipeline/aggregate", map[string]interface{}{
		"group_by": []string{"Reporter"},
		"reduce":   "sum",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto struct {
		Groups []struct {
			Keys  []string `json:"keys"`
			Value float64  `json:"value"`
		} `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
	require.Len(t, dto.Groups, 2)
	assert.Equal(t, []string{"Kenya"}, dto.Groups[0].Keys)
	assert.InDelta(t, 60.0, dto.Groups[0].Value, 1e-9)
}

func TestDeriveEndpoint_RollingForecast(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp := postJSON(t, server.URL+"/api/pipeline/derive", map[string]interface{}{
		"kind":   "rolling_forecast",
		"window": 3,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Kind   string `json:"kind"`
		Result struct {
			Forecast     float64 `json:"forecast"`
			Insufficient bool    `json:"insufficient"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "rolling_forecast", out.Kind)
	assert.False(t, out.Result.Insufficient)
	assert.InDelta(t, 35.0, out.Result.Forecast, 1e-9)
}

func TestDeriveEndpoint_PeriodlessIs422(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, "Reporter,Tons\nKenya,10\n")

	resp := postJSON(t, server.URL+"/api/pipeline/derive", map[string]interface{}{
		"kind": "rolling_forecast",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDeriveEndpoint_UnknownKindIs400(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp := postJSON(t, server.URL+"/api/pipeline/derive", map[string]interface{}{
		"kind": "tarot_reading",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportTableCSV(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp, err := http.Get(server.URL + "/api/export/table")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "trade_data.csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM")
	assert.Contains(t, string(raw), "Kenya")
}

func TestExportAggregateCSV(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	resp := postJSON(t, server.URL+"/api/export/aggregate", map[string]interface{}{
		"group_by": []string{"Reporter"},
		"reduce":   "sum",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "aggregate.csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Reporter,Tons_sum", lines[0])
	assert.Equal(t, "Kenya,60.00", lines[1])
	assert.Equal(t, "Tanzania,45.00", lines[2])
}

func TestExportAggregate_NoDatasetIs409(t *testing.T) {
	server := testServer(t)

	resp := postJSON(t, server.URL+"/api/export/aggregate", map[string]interface{}{
		"group_by": []string{"Reporter"},
		"reduce":   "sum",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDatasetReset(t *testing.T) {
	server := testServer(t)
	uploadCSV(t, server, sampleCSV)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/dataset", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	after, err := http.Get(server.URL + "/api/dataset")
	require.NoError(t, err)
	defer after.Body.Close()
	assert.Equal(t, http.StatusConflict, after.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}
