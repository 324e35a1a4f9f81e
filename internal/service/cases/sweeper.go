package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// Archiver is the bulk update the sweep needs.
type Archiver interface {
	ArchiveWhere(ctx context.Context, rule repo.ArchiveRule, now time.Time) (int64, error)
}

// SweepResult counts archived cases per rule.
type SweepResult struct {
	Archived map[string]int64 `json:"archived"`
	Total    int64            `json:"total"`
}

// Sweeper archives completed and long-approved cases. Each rule is a single
// conditional UPDATE, so overlapping runs are harmless and a second run
// right after the first archives nothing.
type Sweeper struct {
	store    Archiver
	rules    []repo.ArchiveRule
	now      func() time.Time
	archived metric.Int64Counter

	mu   sync.Mutex
	cron *cron.Cron
}

// Rules builds the sweep rules from config, skipping non-positive ages.
func Rules(cfg config.CasesConfig) []repo.ArchiveRule {
	const day = 24 * time.Hour
	var rules []repo.ArchiveRule
	if cfg.CompletedArchiveDays > 0 {
		rules = append(rules, repo.ArchiveRule{Name: "completed", After: time.Duration(cfg.CompletedArchiveDays) * day})
	}
	if cfg.ApprovedArchiveDays > 0 {
		rules = append(rules, repo.ArchiveRule{Name: "approved", After: time.Duration(cfg.ApprovedArchiveDays) * day, Approved: true})
	}
	return rules
}

func NewSweeper(store Archiver, rules []repo.ArchiveRule) *Sweeper {
	counter, err := otel.Meter("dentlab/cases").Int64Counter("dentlab_cases_archived_total",
		metric.WithDescription("Cases archived by the sweeper"))
	if err != nil {
		slog.Warn("sweeper: counter init failed", "err", err)
	}
	return &Sweeper{store: store, rules: rules, now: time.Now, archived: counter}
}

// Run applies every rule once. A failing rule does not stop the others.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()
	res := SweepResult{Archived: make(map[string]int64, len(s.rules))}
	var errs []error

	for _, rule := range s.rules {
		n, err := s.store.ArchiveWhere(ctx, rule, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.Archived[rule.Name] = n
		res.Total += n
		if n > 0 && s.archived != nil {
			s.archived.Add(ctx, n, metric.WithAttributes(attribute.String("rule", rule.Name)))
		}
	}
	if res.Total > 0 {
		slog.InfoContext(ctx, "sweeper: cases archived", "total", res.Total, "by_rule", res.Archived)
	}
	return res, errors.Join(errs...)
}

// Start schedules Run on spec (standard five-field cron) in loc.
func (s *Sweeper) Start(spec string, loc *time.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Run(ctx); err != nil {
			slog.Error("sweeper: scheduled run failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	c.Start()
	s.cron = c
	slog.Info("sweeper: scheduled", "spec", spec, "tz", loc.String())
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
