package preflight

import (
	"context"

	"discrip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the resolved run configuration.
// cfg.Device may be empty when no drive was located.
func RunAll(ctx context.Context, cfg config.RunConfig) []Result {
	var results []Result

	results = append(results, CheckDevice(cfg.Device))
	results = append(results, CheckOutputRoot(cfg.OutputRoot))
	results = append(results, CheckFreeSpace(cfg.OutputRoot, cfg.Settings.Ripping.MinFreeBytes()))
	results = append(results, CheckHookDir(cfg.HookDir))
	results = append(results, CheckDirectoryAccess("Lock directory", cfg.Settings.Paths.LockDir))

	for _, status := range CheckSystemDeps(ctx, cfg.Settings) {
		detail := status.Detail
		if status.Available {
			detail = status.Path
			if status.Version != "" {
				detail += " (" + status.Version + ")"
			}
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: detail,
		})
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
