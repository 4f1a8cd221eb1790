package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestCountersExposed(t *testing.T) {
	PacketsTotal.Inc()
	BytesTotal.Add(64)
	LayersTotal.WithLabelValues("Ethernet").Inc()
	DecodeErrorsTotal.WithLabelValues("need_data").Inc()

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	for _, name := range []string{
		"strix_packets_total",
		"strix_bytes_total",
		`strix_layers_total{proto="Ethernet"}`,
		`strix_decode_errors_total{kind="need_data"}`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Metric %s not exposed", name)
		}
	}
}

func TestServerStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", "")
	if s.path != "/metrics" {
		t.Errorf("Expected default path /metrics, got %s", s.path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := NewServer(":0", "/metrics").Stop(); err != nil {
		t.Errorf("Stop on a never-started server failed: %v", err)
	}
}
