package alignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
)

// analyzerPayload mirrors the JSON the external analyzer prints on stdout.
type analyzerPayload struct {
	BestResult *struct {
		OffsetMS   float64 `json:"offset_ms"`
		Confidence float64 `json:"confidence"`
		Method     string  `json:"method"`
	} `json:"best_result"`
	Error string `json:"error"`
}

// runAnalyzer shells out to the configured analyzer script. A missing script
// is a normal condition on hosts without the analysis toolchain installed.
func (d *Detector) runAnalyzer(ctx context.Context, instPath, vocalPath string) (Result, error) {
	if strings.TrimSpace(d.analyzerScript) == "" {
		return Result{}, errors.New("analyzer script not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, d.analyzerTimeout)
	defer cancel()

	binary := d.analyzerBinary
	if strings.TrimSpace(binary) == "" {
		binary = "python3"
	}

	cmd := exec.CommandContext(ctx, binary, d.analyzerScript, instPath, vocalPath)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Result{}, fmt.Errorf("analyzer failed: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return Result{}, fmt.Errorf("analyzer failed: %w", err)
	}

	var payload analyzerPayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return Result{}, fmt.Errorf("analyzer output not parseable: %w", err)
	}
	if payload.Error != "" {
		return Result{}, fmt.Errorf("analyzer reported: %s", payload.Error)
	}
	if payload.BestResult == nil {
		return Result{}, errors.New("analyzer returned no result")
	}

	method := payload.BestResult.Method
	if method == "" {
		method = MethodAnalyzer
	}
	return Result{
		OffsetMS:   int(math.Round(payload.BestResult.OffsetMS)),
		Confidence: payload.BestResult.Confidence,
		Method:     method,
	}, nil
}
