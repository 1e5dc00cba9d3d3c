package scheduler

import (
	"github.com/bookbee/bookbee-backend/internal/app/service"
	"github.com/bookbee/bookbee-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// AggregateReconciler periodically recomputes every story's rating aggregate,
// repairing drift left by writes made outside the review service.
type AggregateReconciler struct {
	cron       *cron.Cron
	schedule   string
	aggregator service.RatingAggregator
}

func NewAggregateReconciler(aggregator service.RatingAggregator, schedule string) *AggregateReconciler {
	return &AggregateReconciler{
		cron:       cron.New(),
		schedule:   schedule,
		aggregator: aggregator,
	}
}

// RunOnce recomputes all aggregates and returns how many stories were refreshed.
func (s *AggregateReconciler) RunOnce() (int, error) {
	logger.Info("Starting rating aggregate reconciliation")

	refreshed, err := s.aggregator.RecomputeAll()
	if err != nil {
		logger.Error("Rating aggregate reconciliation finished with errors", err, map[string]interface{}{
			"refreshed": refreshed,
		})
		return refreshed, err
	}

	logger.Info("Rating aggregate reconciliation finished", map[string]interface{}{
		"refreshed": refreshed,
	})
	return refreshed, nil
}

func (s *AggregateReconciler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce()
	})
	if err != nil {
		logger.Error("Failed to add cron job for aggregate reconciliation", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Aggregate reconciler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// Stop waits for a running reconciliation to finish.
func (s *AggregateReconciler) Stop() {
	logger.Info("Stopping aggregate reconciler...")
	<-s.cron.Stop().Done()
	logger.Info("Aggregate reconciler stopped")
}
