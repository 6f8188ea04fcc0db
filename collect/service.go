package collect

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonwraymond/devicestatus/health"
)

// CommandRunner runs an external command and returns its standard output.
// A non-zero exit is reported as an error alongside whatever was printed.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SystemdProbe reports the player unit's state via `systemctl is-active`.
func SystemdProbe(run CommandRunner, unit string) ServiceFunc {
	if run == nil {
		run = ExecRunner
	}
	return func(ctx context.Context) (health.ServiceHealth, error) {
		out, err := run(ctx, "systemctl", "is-active", unit)
		state := strings.TrimSpace(string(out))
		if state == "" {
			if err == nil {
				err = errors.New("empty output")
			}
			return nil, fmt.Errorf("systemctl is-active %s: %w", unit, err)
		}
		// is-active exits non-zero for every state but active; the state
		// printed on stdout is still authoritative.
		return health.PiHealth{Unit: unit, ActiveState: state}, nil
	}
}

var launchdField = regexp.MustCompile(`^\s*"([A-Za-z]+)"\s*=\s*(-?\d+);`)

// LaunchdProbe reports the tracker agent's state via `launchctl list <label>`.
func LaunchdProbe(run CommandRunner, label string) ServiceFunc {
	if run == nil {
		run = ExecRunner
	}
	return func(ctx context.Context) (health.ServiceHealth, error) {
		out, err := run(ctx, "launchctl", "list", label)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("launchctl list %s: %w", label, ctxErr)
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// Not loaded.
				return health.MacHealth{Label: label}, nil
			}
			return nil, fmt.Errorf("launchctl list %s: %w", label, err)
		}
		return parseLaunchctl(label, out), nil
	}
}

func parseLaunchctl(label string, out []byte) health.MacHealth {
	h := health.MacHealth{Label: label}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := launchdField.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch m[1] {
		case "PID":
			h.PID = n
			h.Running = n > 0
		case "LastExitStatus":
			h.LastExitStatus = n
		}
	}
	return h
}
