package preflight

import (
	"strings"

	"mixdown/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
	}

	if strings.TrimSpace(cfg.Paths.StoreRoot) != "" {
		results = append(results, CheckDirectoryAccess("Object store root", cfg.Paths.StoreRoot))
	}

	if strings.TrimSpace(cfg.Alignment.AnalyzerScript) != "" {
		results = append(results, CheckAnalyzerScript(cfg.Alignment.AnalyzerScript))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
