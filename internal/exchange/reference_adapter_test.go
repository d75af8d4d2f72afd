package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arbengine/internal/models"
)

func TestReferenceAdapterLoadInitialPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/position" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]float64{"qty": 0.12, "avg_entry": 100.5})
	}))
	defer srv.Close()

	adapter := NewReferenceAdapter(ReferenceAdapterConfig{
		Name: "v1", RESTBaseURL: srv.URL, RateLimit: 100, RateBurst: 100,
	})

	qty, entry, err := adapter.LoadInitialPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 0.12 || entry != 100.5 {
		t.Fatalf("expected qty=0.12 entry=100.5, got qty=%v entry=%v", qty, entry)
	}
}

func TestReferenceAdapterLoadInitialPositionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	adapter := NewReferenceAdapter(ReferenceAdapterConfig{
		Name: "v1", RESTBaseURL: srv.URL, RateLimit: 100, RateBurst: 100,
	})

	if _, _, err := adapter.LoadInitialPosition(context.Background()); err == nil {
		t.Fatal("expected an error on a 500 response")
	}
}

func TestReferenceAdapterSendMarketOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req marketOrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Side != "LONG" || req.Size != 0.12 {
			t.Fatalf("unexpected request body: %+v", req)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"order_id":"abc"}`))
	}))
	defer srv.Close()

	adapter := NewReferenceAdapter(ReferenceAdapterConfig{
		Name: "v1", RESTBaseURL: srv.URL, RateLimit: 100, RateBurst: 100,
	})

	res, err := adapter.SendMarket(context.Background(), models.SideLong, 0.12, 100.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "OK" {
		t.Fatalf("expected OK status, got %s", res.Status)
	}
}

func TestReferenceAdapterSendMarketRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"min_size violation"}`))
	}))
	defer srv.Close()

	adapter := NewReferenceAdapter(ReferenceAdapterConfig{
		Name: "v1", RESTBaseURL: srv.URL, RateLimit: 100, RateBurst: 100,
	})

	res, err := adapter.SendMarket(context.Background(), models.SideShort, 0.001, 100.1)
	if err != nil {
		t.Fatalf("expected no transport error even on a rejection, got %v", err)
	}
	if res.Status != "ERROR" {
		t.Fatalf("expected ERROR status on a 4xx response, got %s", res.Status)
	}
}

func TestReferenceAdapterMetadataAndName(t *testing.T) {
	adapter := NewReferenceAdapter(ReferenceAdapterConfig{
		Name:     "v1:BTC-PERP",
		Metadata: VenueMetadata{MinSize: 0.001, SizeStep: 0.001},
	})
	if adapter.Name() != "v1:BTC-PERP" {
		t.Fatalf("unexpected name: %s", adapter.Name())
	}
	if adapter.Metadata().MinSize != 0.001 {
		t.Fatalf("unexpected metadata: %+v", adapter.Metadata())
	}
}
