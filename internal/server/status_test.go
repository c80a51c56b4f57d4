package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mesh_chat/internal/transport"
)

func TestStatus_Healthz(t *testing.T) {
	network := transport.NewNetwork()
	n, err := NewNode(testConfig(t, 9002, 8), WithListener(network.ListenPacket))
	if err != nil {
		t.Fatal(err)
	}
	mux := n.StatusMux()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before start, got %d", rr.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := n.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer n.Stop()

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("Expected 200 ok, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestStatus_Info(t *testing.T) {
	network := transport.NewNetwork()
	endpoint(t, network, 9001)
	n, _ := startNode(t, network, testConfig(t, 9002, 8, 9001))
	if err := n.Say("hi", ""); err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	n.StatusMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var info infoResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if info.Label != "127.0.0.1:9002" {
		t.Errorf("Expected label 127.0.0.1:9002, got %s", info.Label)
	}
	if len(info.Peers) != 1 || info.Peers[0] != "127.0.0.1:9001" {
		t.Errorf("Expected one peer, got %v", info.Peers)
	}
	if info.SeenEntries != 1 || !info.Running {
		t.Errorf("Expected 1 seen entry on a running node, got %+v", info)
	}
}

func TestStatus_MetricsEndpoint(t *testing.T) {
	network := transport.NewNetwork()
	n, _ := startNode(t, network, testConfig(t, 9002, 8))
	mux := n.StatusMux()

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{
		"mesh_http_requests_total",
		"mesh_uptime_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}
