package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/internal/store/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const collectTimeout = 5 * time.Second

type jobStatsCollector struct {
	store       store.Store
	jobsByState *prometheus.Desc
}

// NewJobStatsCollector reports the number of stored jobs per status on every scrape.
func NewJobStatsCollector(s store.Store) prometheus.Collector {
	return &jobStatsCollector{
		store: s,
		jobsByState: prometheus.NewDesc(
			fmt.Sprintf("%s_jobs", foldPlanner),
			"Number of jobs in each status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
	}
}

func (c *jobStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobsByState
}

// Collect implements Collector.
func (c *jobStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.store.Job().Stats(ctx)
	if err != nil {
		zap.S().Named("job_collector").Errorf("failed to collect job statistics: %s", err)
		return
	}

	for _, status := range model.JobStatuses {
		ch <- prometheus.MustNewConstMetric(c.jobsByState, prometheus.GaugeValue, float64(stats.ByStatus[status]), status)
	}
}
