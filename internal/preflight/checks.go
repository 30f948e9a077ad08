package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mixdown/internal/config"
	"mixdown/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckAnalyzerScript verifies that the configured offset analyzer script
// exists and is a regular file.
func CheckAnalyzerScript(path string) Result {
	const name = "Analyzer script"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSystemDeps evaluates all external binary dependencies for the given
// config. Both the daemon startup path and the CLI doctor command use this
// to avoid duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Render.FFmpegBinary,
			Description: "Required for sample extraction and mix rendering",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Render.FFprobeBinary,
			Description: "Required for stem validation",
		},
		{
			Name:        "Analyzer interpreter",
			Command:     cfg.Alignment.AnalyzerBinary,
			Description: "Runs the external offset analyzer when a script is configured",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
