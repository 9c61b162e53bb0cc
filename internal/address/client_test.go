package address_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"innocents/internal/address"
	"innocents/internal/domain"
)

const banResponse = `{
	"type": "FeatureCollection",
	"features": [
		{"properties": {"label": "4 Rue du Docteur Schweitzer 91430 Igny", "name": "4 Rue du Docteur Schweitzer", "postcode": "91430", "city": "Igny"}},
		{"properties": {"label": "4 Rue du Docteur Roux 75015 Paris", "name": "4 Rue du Docteur Roux", "postcode": "75015", "city": "Paris"}}
	]
}`

func collect(seq func(func(domain.AddressSuggestion) bool)) []domain.AddressSuggestion {
	var out []domain.AddressSuggestion
	seq(func(s domain.AddressSuggestion) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/search/", r.URL.Path)
		require.Equal(t, "4 rue du docteur", r.URL.Query().Get("q"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(banResponse))
	}))
	defer server.Close()

	client := address.NewClient(zaptest.NewLogger(t), server.URL)
	got := collect(client.Search(context.Background(), "4 rue du docteur"))

	require.Equal(t, []domain.AddressSuggestion{
		{Label: "4 Rue du Docteur Schweitzer 91430 Igny", Name: "4 Rue du Docteur Schweitzer", Postcode: "91430", City: "Igny"},
		{Label: "4 Rue du Docteur Roux 75015 Paris", Name: "4 Rue du Docteur Roux", Postcode: "75015", City: "Paris"},
	}, got)
	require.EqualValues(t, 1, calls.Load())
}

func TestSearchShortQuerySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := address.NewClient(zaptest.NewLogger(t), server.URL)
	require.Empty(t, collect(client.Search(context.Background(), "4 r")))
	require.Empty(t, collect(client.Search(context.Background(), "   4 r  ")))
	require.EqualValues(t, 0, calls.Load())
}

func TestSearchCapsAtFive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := `{"features":[`
		for i := range 8 {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"properties":{"label":"addr %d","name":"addr %d","postcode":"75001","city":"Paris"}}`, i, i)
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := address.NewClient(zaptest.NewLogger(t), server.URL)
	require.Len(t, collect(client.Search(context.Background(), "some long query")), 5)
}

func TestSearchFailuresYieldNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	client := address.NewClient(zaptest.NewLogger(t), server.URL)
	require.Empty(t, collect(client.Search(context.Background(), "some long query")))

	// Unreachable endpoint behaves identically.
	server.Close()
	require.Empty(t, collect(client.Search(context.Background(), "some long query")))
}

func TestSearchStopsWhenConsumerStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(banResponse))
	}))
	defer server.Close()

	client := address.NewClient(zaptest.NewLogger(t), server.URL)
	var got []domain.AddressSuggestion
	client.Search(context.Background(), "4 rue du docteur")(func(s domain.AddressSuggestion) bool {
		got = append(got, s)
		return false
	})
	require.Len(t, got, 1)
}

func TestDebouncerRunsOnlyLast(t *testing.T) {
	d := address.NewDebouncer(30 * time.Millisecond)
	var ran atomic.Int32
	done := make(chan struct{})

	d.Do(func() { ran.Add(100) })
	d.Do(func() { ran.Add(100) })
	d.Do(func() {
		ran.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	// Give superseded functions a chance to misfire before asserting.
	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 1, ran.Load())
}

func TestDebouncerStop(t *testing.T) {
	d := address.NewDebouncer(20 * time.Millisecond)
	var ran atomic.Int32
	d.Do(func() { ran.Add(1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	require.EqualValues(t, 0, ran.Load())
}
