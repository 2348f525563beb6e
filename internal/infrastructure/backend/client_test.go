package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fundarb/internal/application/port"
)

func TestClientListOpportunities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/opportunities" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "active" {
			t.Errorf("status param missing: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id": "o1", "symbol": "BTCUSDT", "uos_score": "75"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	got, err := c.ListOpportunities(context.Background(), port.OpportunityQuery{Status: "active"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Score != 75 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

// TestClientErrorVerbatim 非 2xx 时优先透传后端文案
func TestClientErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "opportunity no longer available"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GetOpportunity(context.Background(), "gone")
	if err == nil || err.Error() != "opportunity no longer available" {
		t.Fatalf("expected verbatim backend error, got %v", err)
	}
}

func TestClientErrorFallbackFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.StartBot(context.Background())
	if err == nil || err.Error() != "backend http 502: upstream down" {
		t.Fatalf("expected formatted error, got %v", err)
	}
}

// TestClientExecuteEmbeddedFailure HTTP 200 + success:false 归并为 error
func TestClientExecuteEmbeddedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`{"success": false, "message": "insufficient balance on hedge leg"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.ExecuteOpportunity(context.Background(), "o1", 100)
	if err == nil || err.Error() != "insufficient balance on hedge leg" {
		t.Fatalf("expected embedded failure message, got %v", err)
	}
}

func TestClientExecuteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"success": true, "position_id": "pos-1",
			"primary_leg": {"exchange": "binance", "side": "long", "order_id": "a"},
			"hedge_leg": {"exchange": "bybit", "side": "short", "order_id": "b"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	res, err := c.ExecuteOpportunity(context.Background(), "o1", 100)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.PositionID != "pos-1" || res.PrimaryLeg.Exchange != "binance" || res.HedgeLeg.OrderID != "b" {
		t.Fatalf("result wrong: %+v", res)
	}
}
