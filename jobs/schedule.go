package jobs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hibiken/asynq"
)

// TriggerCLI marks tasks enqueued by an operator.
const TriggerCLI = "cli"

const triggerCron = "cron"

// schedules maps every periodic task to its cron spec.
var schedules = map[string]string{
	TaskLowStockScan:       "@hourly",
	TaskInventoryReconcile: "30 3 * * *",
	TaskStatsWarmup:        "@every 5m",
	TaskIdempotencyCleanup: "0 4 * * *",
}

// Periodic lists the task names that may be triggered by name.
func Periodic() []string {
	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTask builds a periodic task by name, tagged with what triggered it.
func NewTask(name, trigger string) (*asynq.Task, error) {
	var payload any
	switch name {
	case TaskLowStockScan:
		payload = LowStockScanPayload{Trigger: trigger}
	case TaskIdempotencyCleanup:
		payload = IdempotencyCleanupPayload{Trigger: trigger}
	case TaskInventoryReconcile, TaskStatsWarmup:
		payload = map[string]string{"trigger": trigger}
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, data, asynq.MaxRetry(3)), nil
}

// DefaultSchedule returns the cron registrations for every periodic task.
func DefaultSchedule() ([]CronRegistration, error) {
	regs := make([]CronRegistration, 0, len(schedules))
	for _, name := range Periodic() {
		task, err := NewTask(name, triggerCron)
		if err != nil {
			return nil, err
		}
		regs = append(regs, CronRegistration{
			Spec:    schedules[name],
			Task:    task,
			Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.Unique(schedulerUniqueTTL)},
		})
	}
	return regs, nil
}
