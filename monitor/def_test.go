package monitor

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestObserve(t *testing.T) {
	before := value(t, RecordsLoaded.WithLabelValues("groundtruth"))
	skippedBefore := value(t, LinesSkipped.WithLabelValues("groundtruth"))
	renderedBefore := value(t, ImagesRendered)

	ObserveLoad("groundtruth", 3, 2)
	ObserveRender()

	assert.Equal(t, before+3, value(t, RecordsLoaded.WithLabelValues("groundtruth")))
	assert.Equal(t, skippedBefore+2, value(t, LinesSkipped.WithLabelValues("groundtruth")))
	assert.Equal(t, renderedBefore+1, value(t, ImagesRendered))
}

func TestServe(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis) }()

	GRPCTotal.Inc()
	url := "http://" + lis.Addr().String() + "/metrics"
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "grpc_requests_total"))
	assert.True(t, strings.Contains(body, "obstaclevis_images_rendered_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
