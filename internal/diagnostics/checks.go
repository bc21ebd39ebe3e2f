package diagnostics

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one named diagnostic. A failing optional check is reported as a
// warning.
type Check struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) (detail string, err error)
}

// Result is the outcome of running a Check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail"`
	Required bool          `json:"required"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the ordered outcome of a set of checks.
type Report struct {
	Results []Result      `json:"results"`
	System  SystemMetrics `json:"system"`
}

// OK reports whether every required check passed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return false
		}
	}
	return true
}

// Warnings counts optional checks that did not pass.
func (r Report) Warnings() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusWarn {
			n++
		}
	}
	return n
}

// DefaultCheckTimeout bounds a single check.
const DefaultCheckTimeout = 10 * time.Second

// RunChecks runs checks concurrently and returns results in input order.
func RunChecks(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))
	var g errgroup.Group
	g.SetLimit(4)
	for i, c := range checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runCheck(ctx context.Context, c Check) (res Result) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
	defer cancel()

	start := time.Now()
	res = Result{Name: c.Name, Required: c.Required}
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFail
			res.Detail = fmt.Sprintf("check panicked: %v", p)
		}
		res.Duration = time.Since(start)
	}()

	detail, err := c.Run(ctx)
	switch {
	case err == nil:
		res.Status, res.Detail = StatusOK, detail
	case c.Required:
		res.Status, res.Detail = StatusFail, err.Error()
	default:
		res.Status, res.Detail = StatusWarn, err.Error()
	}
	return res
}

// CommandCheck verifies the first word of command is on PATH.
func CommandCheck(name, command string, required bool) Check {
	return Check{
		Name:     name,
		Required: required,
		Run: func(context.Context) (string, error) {
			fields := strings.Fields(command)
			if len(fields) == 0 {
				return "", fmt.Errorf("no command configured")
			}
			path, err := exec.LookPath(fields[0])
			if err != nil {
				return "", fmt.Errorf("%s not found on PATH", fields[0])
			}
			return path, nil
		},
	}
}

// SecretCheck verifies a credential is configured without revealing it.
func SecretCheck(name, value string, required bool) Check {
	return Check{
		Name:     name,
		Required: required,
		Run: func(context.Context) (string, error) {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("not set")
			}
			return "set", nil
		},
	}
}

// DiskSpaceCheck warns when the filesystem holding path is almost full.
func DiskSpaceCheck(path string, maxPercent float64) Check {
	return Check{
		Name: "disk space",
		Run: func(context.Context) (string, error) {
			s := CollectSystem(path)
			if s.DiskTotalGB == 0 {
				return "", fmt.Errorf("cannot read usage for %s", s.DiskPath)
			}
			detail := fmt.Sprintf("%.1f GB free on %s (%.0f%% used)", s.DiskFreeGB, s.DiskPath, s.DiskPercent)
			if s.DiskPercent > maxPercent {
				return "", fmt.Errorf("%s", detail)
			}
			return detail, nil
		},
	}
}
