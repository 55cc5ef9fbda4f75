package ripping

import (
	"context"
	"log/slog"

	"discrip/internal/disc"
	"discrip/internal/hooks"
	"discrip/internal/logging"
)

// EjectAction is the eject branch chosen for a finished run.
type EjectAction int

const (
	EjectNone EjectAction = iota
	EjectSuccess
	EjectFailure
)

func (a EjectAction) String() string {
	switch a {
	case EjectSuccess:
		return "success"
	case EjectFailure:
		return "failure"
	default:
		return "none"
	}
}

// Points returns the hook pair wrapped around the eject, if any.
func (a EjectAction) Points() (pre, post hooks.Point, ok bool) {
	switch a {
	case EjectSuccess:
		return hooks.PreSuccessEject, hooks.PostSuccessEject, true
	case EjectFailure:
		return hooks.PreFailedEject, hooks.PostFailedEject, true
	default:
		return "", "", false
	}
}

// DecideEject evaluates the eject table. NO_EJECT wins over everything; a
// failed run only ejects when FAILED_EJECT is set.
func DecideEject(noEject, failedEject bool, outcome Outcome) EjectAction {
	switch {
	case noEject:
		return EjectNone
	case !outcome.Failed():
		return EjectSuccess
	case failedEject:
		return EjectFailure
	default:
		return EjectNone
	}
}

// HookFirer runs lifecycle hooks. *hooks.Runner satisfies it.
type HookFirer interface {
	Fire(ctx context.Context, point hooks.Point, vars map[string]string) (hooks.Result, error)
}

// EjectController runs the chosen eject branch. Hook and eject failures are
// logged and never change the run's exit status.
type EjectController struct {
	hooks    HookFirer
	ejector  disc.Ejector
	reporter *Reporter
	logger   *slog.Logger
}

// NewEjectController wires the eject branch collaborators.
func NewEjectController(firer HookFirer, ejector disc.Ejector, reporter *Reporter, logger *slog.Logger) *EjectController {
	if reporter == nil {
		reporter = NewReporter(nil, nil, false)
	}
	return &EjectController{
		hooks:    firer,
		ejector:  ejector,
		reporter: reporter,
		logger:   logging.NewComponentLogger(logger, "eject"),
	}
}

// Run executes action for device and reports whether the eject command
// succeeded.
func (c *EjectController) Run(ctx context.Context, action EjectAction, device string, vars map[string]string) bool {
	logger := logging.WithContext(ctx, c.logger)
	pre, post, ok := action.Points()
	if !ok {
		logger.Debug("eject skipped", logging.String("action", action.String()))
		return false
	}

	c.fire(ctx, logger, pre, vars)
	c.reporter.Ejecting(action == EjectFailure)
	ejected := false
	if c.ejector == nil {
		logger.Warn("no ejector configured", logging.String(logging.FieldEventType, "eject_unavailable"))
	} else if err := c.ejector.Eject(ctx, device); err != nil {
		logging.WarnWithContext(logger, "eject failed", "eject_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the drive is not mounted or locked"),
			logging.String(logging.FieldImpact, "disc stays in the drive"),
		)
	} else {
		ejected = true
		logger.Info("disc ejected", logging.String(logging.FieldEventType, "eject_complete"))
	}
	c.fire(ctx, logger, post, vars)
	return ejected
}

func (c *EjectController) fire(ctx context.Context, logger *slog.Logger, point hooks.Point, vars map[string]string) {
	if c.hooks == nil {
		return
	}
	if _, err := c.hooks.Fire(ctx, point, vars); err != nil {
		logging.WarnWithContext(logger, "eject hook failed", "hook_failed",
			logging.String(logging.FieldHookPoint, string(point)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "exit status unchanged"),
		)
	}
}
