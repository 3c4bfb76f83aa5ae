package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/wonny/perfa/pkg/httputil"
	"github.com/wonny/perfa/pkg/logger"
)

// Example_basic demonstrates basic HTTP client usage
func Example_basic() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Create HTTP client (SSOT)
	client := httputil.New(logger.NewNop())

	// Make GET request
	ctx := context.Background()
	resp, err := client.Get(ctx, server.URL+"/api/v1/close?code=600519&date=2024-01-15")
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	// Output:
	// Status: 200
}

// Example_withRetryAndRateLimit demonstrates the throttled retrying client
// used against the quote service
func Example_withRetryAndRateLimit() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"close": 1688.00}`)
	}))
	defer server.Close()

	client := httputil.New(logger.NewNop()).
		WithRetry(5, 10*time.Millisecond). // 5 retries, short initial delay
		WithRateLimit(5, 10)               // 5 req/s, burst 10

	var quote struct {
		Close float64 `json:"close"`
	}

	ctx := context.Background()
	if err := client.GetJSON(ctx, server.URL+"/api/v1/close?code=600519", &quote); err != nil {
		fmt.Printf("Request failed after retries: %v\n", err)
		return
	}

	fmt.Printf("Close: %.2f\n", quote.Close)
	// Output:
	// Close: 1688.00
}
