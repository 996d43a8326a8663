package scheduler

import (
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// recalculateAllCron runs the nightly sweep at 03:00 UTC, outside business
// hours for the primary tenants.
const recalculateAllCron = "0 3 * * *"

// NewPeriodic builds the asynq scheduler that enqueues recurring jobs.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*asynq.Scheduler, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	sched := asynq.NewScheduler(opt, nil)
	if _, err := sched.Register(recalculateAllCron, NewRecalculateAllTask(), asynq.Queue(queue)); err != nil {
		return nil, err
	}

	log.Info("periodic jobs registered", "recalculate_all", recalculateAllCron)
	return sched, nil
}
