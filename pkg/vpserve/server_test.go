package vpserve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vplabeler/core/internal/config"
	"github.com/vplabeler/core/internal/logging"
	"github.com/vplabeler/core/pkg/population"
	"github.com/vplabeler/core/pkg/vpmodel"
	"github.com/vplabeler/core/pkg/vprecord"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: 1,
		},
		Model: config.ModelConfig{CacheSize: 4},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "json",
		},
	}
}

func populationTree(offset uint64) vpmodel.CompiledNode {
	return vpmodel.CompiledNode{
		Kind: vpmodel.KindPopulation,
		Population: &vpmodel.CompiledPopulationNode{
			Pools:      []population.Pool{{Offset: offset, Total: 1}},
			RandomSeed: "seed",
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), logging.New(config.LoggingConfig{Level: "error", Format: "json"}))
	require.NoError(t, err)
	s.now = func() string { return "2026-07-31" }
	return s
}

func TestHealthWithoutModelIsUnavailable(t *testing.T) {
	s := newTestServer(t)
	w := performRequest(s.Router(), "GET", "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleLabelWithoutModelConfigured(t *testing.T) {
	s := newTestServer(t)
	w := performRequest(s.Router(), "POST", "/v1/label", vprecord.LabelerInput{
		EventID: &vprecord.EventID{ID: "abc"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleLabelBatch(t *testing.T) {
	s := newTestServer(t)

	nodes := vpmodel.ToNodeListRepresentation(populationTree(42))
	req := batchRequest{
		Nodes: nodes,
		Inputs: []vprecord.LabelerInput{
			{EventID: &vprecord.EventID{ID: "1"}},
			{EventID: &vprecord.EventID{ID: "2"}},
		},
	}

	w := performRequest(s.Router(), "POST", "/v1/label:batch", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Outputs, 2)
	for _, out := range resp.Outputs {
		require.Len(t, out.People, 1)
		assert.EqualValues(t, 42, out.People[0].VirtualPersonID)
	}
}

func TestHandleLabelBatchRejectsEmptyInput(t *testing.T) {
	s := newTestServer(t)
	w := performRequest(s.Router(), "POST", "/v1/label:batch", batchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLabelBatchRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, "/v1/label:batch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLabelUsesDiskModelAndCachesByDay(t *testing.T) {
	root := populationTree(7)
	path := writeSingleRootModel(t, root)

	cfg := testConfig()
	cfg.Model.Path = path
	s, err := New(cfg, logging.New(config.LoggingConfig{Level: "error", Format: "json"}))
	require.NoError(t, err)
	s.now = func() string { return "2026-07-31" }

	w := performRequest(s.Router(), "POST", "/v1/label", vprecord.LabelerInput{
		EventID: &vprecord.EventID{ID: "abc"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, s.cache.Len())

	var out struct {
		People []struct {
			VirtualPersonID int64 `json:"VirtualPersonID"`
		}
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.People, 1)
	assert.EqualValues(t, 7, out.People[0].VirtualPersonID)
}

func writeSingleRootModel(t *testing.T, root vpmodel.CompiledNode) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "model-*.json")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, json.NewEncoder(f).Encode(root))
	return f.Name()
}
