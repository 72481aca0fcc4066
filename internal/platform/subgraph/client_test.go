package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

func TestFetchPage_MapsPagingAndCondition(t *testing.T) {
	var req graphqlRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"data": {"markets": [
			{"id": "0xabc", "question": "Q?", "endDate": "2025-01-01T00:00:00Z", "volume": "10.5",
			 "condition": {"id": "0xc", "resolutionTime": "1767225600"}},
			{"id": "0xdef", "condition": null},
			"junk"
		]}}`))
	}))
	defer srv.Close()

	markets, err := NewClient(srv.URL, "secret", time.Second).FetchPage(context.Background(), 100, 200)
	if err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer secret" {
		t.Errorf("authorization = %q", auth)
	}
	if req.Variables["first"] != float64(100) || req.Variables["skip"] != float64(200) {
		t.Errorf("variables = %v", req.Variables)
	}
	if len(markets) != 3 {
		t.Fatalf("got %d markets, want 3", len(markets))
	}

	cond, ok := markets[0].Condition.Get()
	if !ok {
		t.Fatal("condition missing")
	}
	if rt, _ := cond.ResolutionTime.Get(); rt != "1767225600" {
		t.Errorf("resolutionTime = %q", rt)
	}
	if v, _ := markets[0].Volume.Get(); v != 10.5 {
		t.Errorf("volume = %v", v)
	}
	if markets[1].Condition.Present() {
		t.Error("null condition should be absent")
	}
	if markets[2].ID.Present() {
		t.Error("non-object element should decode empty")
	}
}

func TestFetchPage_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "indexer down"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).FetchPage(context.Background(), 10, 0)
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("err = %v", err)
	}
}

func TestFetchPage_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).FetchPage(context.Background(), 10, 0)
	if !errors.Is(err, domain.ErrUpstreamStatus) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
}
