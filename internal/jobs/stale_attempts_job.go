package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/dukapos/backend/internal/services/payment"
)

// StaleAttemptsJob periodically reports payment attempts that are still
// pending after their correlation window closed. Diagnostic only: abandoned
// attempts stay pending so a late callback that still matches can settle
// them, and nothing here touches tickets.
type StaleAttemptsJob struct {
	service   *payment.Service
	scheduler *gocron.Scheduler
	interval  time.Duration
}

// NewStaleAttemptsJob creates a new stale attempt sweep
func NewStaleAttemptsJob(service *payment.Service, interval time.Duration) *StaleAttemptsJob {
	return &StaleAttemptsJob{
		service:   service,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
	}
}

// Start schedules the sweep and runs it in the background
func (j *StaleAttemptsJob) Start() error {
	if _, err := j.scheduler.Every(j.interval).Do(j.run); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (j *StaleAttemptsJob) Stop() {
	j.scheduler.Stop()
}

func (j *StaleAttemptsJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	attempts, err := j.service.StaleAttempts(ctx)
	if err != nil {
		log.Printf("stale attempt sweep failed: %v", err)
		return
	}
	if len(attempts) == 0 {
		return
	}

	log.Printf("%d payment attempts pending past their callback window", len(attempts))
	for _, attempt := range attempts {
		log.Printf("stale attempt %s: ticket %s, checkout %s, amount %d, created %s",
			attempt.ID, attempt.TicketID, attempt.CheckoutRequestID, attempt.Amount,
			attempt.CreatedAt.Format(time.RFC3339))
	}
}
