package telemetry

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aquastack/aquameter/internal/alerting"
	"github.com/aquastack/aquameter/internal/ledger"
	"github.com/aquastack/aquameter/internal/metrics"
	"github.com/aquastack/aquameter/internal/notification"
	"github.com/aquastack/aquameter/internal/storage"
)

const (
	jobName           = "refresh_levels"
	intervalSetting   = "telemetry_interval_seconds"
	advisoryLockKey   = int64(7301)
	defaultIntervalSc = "300"
)

// Worker periodically polls each reservoir's telemetry source, records the
// reported level and raises alerts when a reservoir drops below its minimum
// allowable level. An advisory lock keeps multi-instance deployments from
// polling the same gauges twice.
type Worker struct {
	store    storage.Storage
	svc      *ledger.Service
	alerter  *alerting.Alerter
	notifier *notification.Service
}

func NewWorker(store storage.Storage, svc *ledger.Service, alerter *alerting.Alerter, notifier *notification.Service) *Worker {
	return &Worker{store: store, svc: svc, alerter: alerter, notifier: notifier}
}

// Run blocks until ctx is cancelled. The poll interval comes from the
// telemetry_interval_seconds setting (integer seconds or a cron expression),
// seeded from AQUAMETER_TELEMETRY_INTERVAL_SECONDS.
func (w *Worker) Run(ctx context.Context) error {
	setting := defaultIntervalSc
	if raw := os.Getenv("AQUAMETER_TELEMETRY_INTERVAL_SECONDS"); raw != "" {
		setting = raw
	}
	if val, err := w.store.GetSetting(ctx, intervalSetting); err == nil && val != "" {
		setting = val
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	getNextRun := func(setting string, lastRun time.Time) time.Time {
		if v, err := strconv.Atoi(setting); err == nil && v > 0 {
			return lastRun.Add(time.Duration(v) * time.Second)
		}
		if sched, err := cron.ParseStandard(setting); err == nil {
			return sched.Next(lastRun)
		}
		return lastRun.Add(5 * time.Minute)
	}

	nextRun := time.Now()

	log.Printf("telemetry: worker starting, initial setting=%q", setting)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := w.store.GetSetting(ctx, intervalSetting); err == nil && val != "" && val != setting {
				log.Printf("telemetry: interval updated from %q to %q", setting, val)
				setting = val
				nextRun = getNextRun(setting, time.Now())
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			ok, err := w.store.AcquireAdvisoryLock(ctx, advisoryLockKey)
			if err != nil {
				log.Printf("telemetry: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = getNextRun(setting, time.Now())
				continue
			}
			if !ok {
				log.Printf("telemetry: advisory lock held by another worker, skipping run")
				nextRun = getNextRun(setting, time.Now())
				continue
			}

			var runErr error
			func() {
				defer func() {
					if _, err := w.store.ReleaseAdvisoryLock(ctx, advisoryLockKey); err != nil {
						log.Printf("telemetry: release advisory lock failed: %v", err)
					}
				}()
				runErr = w.refreshAll(ctx)
			}()

			metrics.UpdateJobMetrics(jobName, started, runErr)
			dur := time.Since(started)
			errMsg := ""
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := w.store.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
				log.Printf("telemetry: update scheduled_jobs failed: %v", err)
			}

			if runErr != nil {
				log.Printf("telemetry: job %s completed with error: %v (duration=%s)", jobName, runErr, dur)
			} else {
				log.Printf("telemetry: job %s completed successfully (duration=%s)", jobName, dur)
			}

			nextRun = getNextRun(setting, time.Now())
		}
	}
}

// refreshAll polls every reservoir that has a telemetry source configured.
// One failing gauge does not stop the sweep; the first error is reported.
func (w *Worker) refreshAll(ctx context.Context) error {
	reservoirs, err := w.store.ListReservoirs(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, r := range reservoirs {
		if r.TelemetrySource == "" {
			continue
		}

		level, err := ReadLevel(ctx, r.TelemetrySource)
		if err != nil {
			log.Printf("telemetry: read reservoir %s failed: %v", r.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if _, err := w.svc.SetReservoirLevel(ctx, r.ID, level); err != nil {
			log.Printf("telemetry: record level for reservoir %s failed: %v", r.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.ReservoirLevel.WithLabelValues(r.ID).Set(float64(level))

		if r.MinAllowableLevel > 0 && level < r.MinAllowableLevel {
			w.raiseLowLevel(ctx, r, level)
		}
	}
	return firstErr
}

func (w *Worker) raiseLowLevel(ctx context.Context, r storage.Reservoir, level uint64) {
	if w.alerter != nil {
		alert := alerting.ReservoirAlert{
			ReservoirID:       r.ID,
			CurrentLevel:      level,
			MinAllowableLevel: r.MinAllowableLevel,
			Capacity:          r.Capacity,
			Timestamp:         time.Now(),
		}
		if err := w.alerter.SendReservoirAlert(ctx, alert); err != nil {
			log.Printf("telemetry: send webhook alert for reservoir %s failed: %v", r.ID, err)
		}
	}
	if w.notifier != nil {
		if err := w.notifier.NotifyLowReservoir(ctx, r.ID, level, r.MinAllowableLevel, r.Capacity); err != nil {
			log.Printf("telemetry: send email alert for reservoir %s failed: %v", r.ID, err)
		}
	}
}
