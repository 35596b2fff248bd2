package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"iconsort/internal/services"
)

// backendCheckTimeout bounds a single health check.
const backendCheckTimeout = 30 * time.Second

// HealthChecker is anything that can check a backend, such as a provider or
// an llm.VisionBackend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckInputDir verifies that the input directory exists and can be listed
// and read.
func CheckInputDir(path string) Result {
	const name = "Input directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not set", Remediation: "pass a directory to 'iconsort run <dir>' or set paths.input_dir"}
	}
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
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckWritableDir verifies that path is a writable directory, or that it
// can be created below its nearest existing ancestor.
func CheckWritableDir(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not set"}
	}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	case os.IsNotExist(err):
		ancestor := existingAncestor(path)
		if ancestor == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
}

// CheckBackend runs one health check with a timeout.
func CheckBackend(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()
	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{
			Name:        name,
			Detail:      summarizeBackendError(err),
			Remediation: strings.Join(services.Remediation(err), "; "),
		}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// summarizeBackendError produces a human-readable summary for health check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	return err.Error()
}

func existingAncestor(path string) string {
	dir := filepath.Clean(path)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
}

func parentDir(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Dir(path)
}
