package cases

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// SideEffect names a best-effort action that follows a case write.
type SideEffect string

const (
	EffectNotify   SideEffect = "notification"
	EffectRealtime SideEffect = "realtime"
	EffectEmail    SideEffect = "email"
	EffectSMS      SideEffect = "sms"
)

// EffectFailure is one side effect that did not complete.
type EffectFailure struct {
	Effect SideEffect `json:"effect"`
	Err    error      `json:"-"`
}

// Outcome is the result of a case write. The write itself succeeded; any
// side effects that failed are listed so callers can report a degraded
// result instead of guessing.
type Outcome struct {
	Case   *repo.Case
	Failed []EffectFailure
}

func (o *Outcome) Degraded() bool { return len(o.Failed) > 0 }

// FailedEffects lists the failed effect names, for headers and logs.
func (o *Outcome) FailedEffects() []string {
	out := make([]string, len(o.Failed))
	for i, f := range o.Failed {
		out[i] = string(f.Effect)
	}
	return out
}

type effects struct {
	failures metric.Int64Counter
}

// run executes fn and records a failure on o without returning it.
func (e effects) run(ctx context.Context, o *Outcome, effect SideEffect, fn func() error) {
	if err := fn(); err != nil {
		slog.WarnContext(ctx, "case side effect failed",
			"effect", effect, "case_id", o.Case.ID, "error", err)
		o.Failed = append(o.Failed, EffectFailure{Effect: effect, Err: err})
		if e.failures != nil {
			e.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("effect", string(effect))))
		}
	}
}
