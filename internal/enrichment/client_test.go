package enrichment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderflow/internal/enrichment"
)

func TestFetchOrderFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/order-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order-1","customer_email":"a@b.com","status":"CREATED"}`))
	}))
	defer srv.Close()

	c := enrichment.NewClient(srv.URL, time.Second)
	order, err := c.FetchOrder(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order == nil || order.ID != "order-1" || order.CustomerEmail != "a@b.com" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestFetchOrderNotFoundIsSoftMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := enrichment.NewClient(srv.URL, time.Second)
	order, err := c.FetchOrder(context.Background(), "missing")
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil order, got %+v", order)
	}
}

func TestFetchOrderServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := enrichment.NewClient(srv.URL, time.Second)
	if _, err := c.FetchOrder(context.Background(), "order-1"); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
