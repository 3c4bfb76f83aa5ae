package pricing

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/perfa/pkg/config"
	"github.com/wonny/perfa/pkg/httputil"
	"github.com/wonny/perfa/pkg/logger"
)

// ServiceSource is an Oracle backed by a remote quote service. The service
// applies its own nearest-trading-day resolution and reports the date it
// actually priced.
type ServiceSource struct {
	baseURL string
	client  *httputil.Client
	logger  *logger.Logger
}

type quoteResponse struct {
	Instrument string  `json:"instrument"`
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
}

// NewServiceSource builds a throttled, retrying quote client
func NewServiceSource(cfg config.PriceServiceConfig, log *logger.Logger) *ServiceSource {
	client := httputil.NewWithTimeout(log, cfg.Timeout).
		WithRateLimit(cfg.RatePerSec, cfg.Burst)

	return &ServiceSource{
		baseURL: cfg.BaseURL,
		client:  client,
		logger:  log,
	}
}

// Price implements Oracle
func (s *ServiceSource) Price(ctx context.Context, instrument string, date time.Time) (float64, error) {
	q := url.Values{}
	q.Set("code", instrument)
	q.Set("date", dayKey(Normalize(date)))
	endpoint := fmt.Sprintf("%s/api/v1/close?%s", s.baseURL, q.Encode())

	var quote quoteResponse
	if err := s.client.GetJSON(ctx, endpoint, &quote); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"instrument": instrument,
			"date":       dayKey(date),
		}).Warn("Quote service lookup failed")
		return 0, &MissingPriceError{Instrument: instrument, Date: date}
	}

	if quote.Close <= 0 {
		return 0, &MissingPriceError{Instrument: instrument, Date: date}
	}

	return quote.Close, nil
}
