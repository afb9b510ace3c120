package publisher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/kvbench/internal/models"
)

type fakeCluster struct {
	mu       sync.Mutex
	indices  map[string]bool
	mappings map[string]string
	docs     []string
	reject   bool
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{indices: map[string]bool{}, mappings: map[string]string{}}
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	index := parts[0]

	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		if !c.indices[index] {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && len(parts) == 1:
		c.indices[index] = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut && len(parts) == 2 && parts[1] == "_mapping":
		c.mappings[index] = string(body)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "_doc":
		if c.reject {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"es_rejected_execution_exception"}`))
			return
		}
		c.docs = append(c.docs, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestSink(t *testing.T, cluster *fakeCluster) *ElasticsearchSink {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	sink, err := NewElasticsearchSink(ElasticsearchConfig{
		Addresses: []string{srv.URL},
		Username:  "elastic",
		Password:  "changeme",
	}, nil)
	require.NoError(t, err)
	return sink
}

func TestElasticsearchSink_Setup(t *testing.T) {
	cluster := newFakeCluster()
	sink := newTestSink(t, cluster)
	assert.Equal(t, DefaultIndex, sink.Index())

	require.NoError(t, sink.Setup(context.Background()))
	assert.True(t, cluster.indices[DefaultIndex])
	assert.Contains(t, cluster.mappings[DefaultIndex], `"type": "date"`)

	// an existing index only gets its mapping refreshed
	require.NoError(t, sink.Setup(context.Background()))
}

func TestElasticsearchSink_Publish(t *testing.T) {
	cluster := newFakeCluster()
	sink := newTestSink(t, cluster)

	m := models.NewSimulationMetrics(models.ScenarioReadOnly)
	m.Operation = models.OperationRead
	m.Successful = true
	read := 1.5
	m.ReadTime = &read

	require.NoError(t, sink.Publish(context.Background(), *m))
	require.Len(t, cluster.docs, 1)
	assert.Contains(t, cluster.docs[0], `"scenario":"readOnly"`)
	assert.Contains(t, cluster.docs[0], `"readTime":1.5`)
	assert.NotContains(t, cluster.docs[0], "writeTime")
}

func TestElasticsearchSink_PublishRejected(t *testing.T) {
	cluster := newFakeCluster()
	cluster.reject = true
	sink := newTestSink(t, cluster)

	err := sink.Publish(context.Background(), *models.NewSimulationMetrics(models.ScenarioCrud))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
