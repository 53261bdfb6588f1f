package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"padwatch/checker"
	"padwatch/config"
	"padwatch/models"
	"padwatch/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg     *config.Config
	checker *checker.Checker
	store   *storage.SQLiteStore
	cron    *cron.Cron
	ticker  *time.Ticker
	stopCh  chan struct{}
	paused  atomic.Bool

	enrichmentWorker Triggerable
	livenessWorker   Triggerable
}

func New(cfg *config.Config, chk *checker.Checker, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		checker: chk,
		store:   store,
		cron:    cron.New(),
		stopCh:  make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(enrichment, liveness Triggerable) {
	s.enrichmentWorker = enrichment
	s.livenessWorker = liveness
}

func (s *Scheduler) Start(ctx context.Context) error {
	if last, err := s.store.GetLastRunTime(); err == nil && !last.IsZero() {
		log.Printf("Last check run started at %s", last.Format(time.RFC3339))
	}
	if pruned, err := s.store.PruneLogs(7 * 24 * time.Hour); err != nil {
		log.Printf("Warning: failed to prune op logs: %v", err)
	} else if pruned > 0 {
		log.Printf("Pruned %d old op log rows", pruned)
	}

	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runChecked(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runChecked(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// runChecked runs a check pass unless the daemon is paused. Per-alert
// cadence lives in the checker; the scheduler tick just has to fire at
// least as often as the fastest tier.
func (s *Scheduler) runChecked(ctx context.Context) {
	if s.paused.Load() {
		log.Println("Daemon paused, skipping scheduled run")
		return
	}
	s.checker.Run(ctx)
}

func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.checker.Run(ctx)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				level, msg := models.LogLevelInfo, fmt.Sprintf("command %s processed", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
					level, msg = models.LogLevelWarn, fmt.Sprintf("command %s failed: %v", cmd.Command, err)
				}
				if err := s.store.Log(nil, level, msg, ""); err != nil {
					log.Printf("Warning: failed to write op log: %v", err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdCheckNow:
		params, err := s.store.ParseCommandParams(cmd)
		if err != nil {
			return fmt.Errorf("bad command params: %w", err)
		}
		if params.AlertID != "" {
			alertID, err := uuid.Parse(params.AlertID)
			if err != nil {
				return fmt.Errorf("bad alert id %q: %w", params.AlertID, err)
			}
			go s.checker.RunAlert(ctx, alertID)
			return nil
		}
		go s.checker.Run(ctx)
		return nil
	case models.CmdPause:
		s.paused.Store(true)
		log.Println("Daemon paused via command")
		return nil
	case models.CmdResume:
		s.paused.Store(false)
		log.Println("Daemon resumed via command")
		return nil
	case models.CmdRunEnrichment:
		if s.enrichmentWorker != nil {
			s.enrichmentWorker.Trigger()
			log.Println("Enrichment worker triggered via command")
		}
		return nil
	case models.CmdRunLiveness:
		if s.livenessWorker != nil {
			s.livenessWorker.Trigger()
			log.Println("Liveness worker triggered via command")
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}
