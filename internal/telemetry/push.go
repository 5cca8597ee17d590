package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tphakala/go-tfs/internal/config"
)

// Push sends the metrics gathered from g to the configured Pushgateway.
// It does nothing when no Pushgateway is configured.
func Push(ctx context.Context, cfg config.MetricsConfig, g prometheus.Gatherer, logger hclog.Logger) error {
	if !cfg.Enabled() {
		return nil
	}

	instance, err := os.Hostname()
	if err != nil {
		instance = "unknown"
	}

	pushCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pusher := push.New(cfg.PushgatewayURL, cfg.JobName).
		Gatherer(g).
		Grouping("instance", instance)

	if err := pusher.PushContext(pushCtx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", cfg.PushgatewayURL, err)
	}

	logger.Debug("metrics pushed", "job", cfg.JobName, "instance", instance)
	return nil
}
