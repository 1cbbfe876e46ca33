package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"atelier/internal/config"
	"atelier/internal/imagesearch"
	"atelier/internal/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig, opts ...llm.Option) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg.FallbackModels = nil
	client, err := llm.New(checkCtx, cfg, append([]llm.Option{llm.WithRetryMaxAttempts(1)}, opts...)...)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := llm.HealthCheck(checkCtx, client); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%s)", cfg.Provider, cfg.Model)}
}

// CheckImageSearch reports which image search providers have credentials.
// Missing keys pass with a note: search simply returns no results.
func CheckImageSearch(cfg config.ImageSearch) []Result {
	configured := imagesearch.New(cfg).Configured()
	results := make([]Result, 0, 2)
	for _, source := range []string{imagesearch.SourcePinterest, imagesearch.SourceUnsplash} {
		name := "Image search (" + source + ")"
		if configured[source] {
			results = append(results, Result{Name: name, Passed: true, Detail: "API key configured"})
			continue
		}
		results = append(results, Result{Name: name, Passed: true, Detail: "not configured (searches return no results)"})
	}
	return results
}

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

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	if errors.Is(err, llm.ErrAPIKeyRequired) {
		return "API key missing"
	}
	return err.Error()
}
