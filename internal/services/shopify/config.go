package shopify

import (
	"shopsync/internal/config"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
)

// NewClientFromConfig builds the client for the configured shop.
func NewClientFromConfig(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics) *Client {
	opts := []Option{
		WithAPIVersion(cfg.APIVersion),
		WithRetryPolicy(RetryPolicy{
			MaxRetries: cfg.RetryMaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
		}),
		WithMetrics(m),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(cfg.ShopName, cfg.AccessToken, logger, opts...)
}
