package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonwraymond/devicestatus/health"
)

// DRMDisplayProbe reads connector status from sysfs under root (normally
// "/sys"). Every connector reporting "connected" is listed.
func DRMDisplayProbe(root string, headless bool) DisplayFunc {
	if root == "" {
		root = "/sys"
	}
	return func(ctx context.Context) (health.Display, error) {
		paths, err := filepath.Glob(filepath.Join(root, "class", "drm", "*", "status"))
		if err != nil {
			return health.Display{}, fmt.Errorf("drm connectors: %w", err)
		}

		d := health.Display{Headless: headless}
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return health.Display{}, err
			}
			raw, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if strings.TrimSpace(string(raw)) != "connected" {
				continue
			}
			d.Connected = true
			d.Displays = append(d.Displays, connectorName(filepath.Base(filepath.Dir(p))))
		}
		sort.Strings(d.Displays)
		return d, nil
	}
}

// connectorName strips the card prefix: card0-HDMI-A-1 -> HDMI-A-1.
func connectorName(dir string) string {
	if i := strings.IndexByte(dir, '-'); i >= 0 && strings.HasPrefix(dir, "card") {
		return dir[i+1:]
	}
	return dir
}

type profilerOutput struct {
	Displays []struct {
		Name    string `json:"_name"`
		Screens []struct {
			Name   string `json:"_name"`
			Online string `json:"spdisplays_online"`
		} `json:"spdisplays_ndrvs"`
	} `json:"SPDisplaysDataType"`
}

// ProfilerDisplayProbe lists displays via `system_profiler SPDisplaysDataType -json`.
func ProfilerDisplayProbe(run CommandRunner, headless bool) DisplayFunc {
	if run == nil {
		run = ExecRunner
	}
	return func(ctx context.Context) (health.Display, error) {
		out, err := run(ctx, "system_profiler", "SPDisplaysDataType", "-json")
		if err != nil {
			return health.Display{}, fmt.Errorf("system_profiler: %w", err)
		}
		var parsed profilerOutput
		if err := json.Unmarshal(out, &parsed); err != nil {
			return health.Display{}, fmt.Errorf("system_profiler output: %w", err)
		}

		d := health.Display{Headless: headless}
		for _, gpu := range parsed.Displays {
			for _, screen := range gpu.Screens {
				if screen.Online == "spdisplays_no" {
					continue
				}
				d.Displays = append(d.Displays, screen.Name)
			}
		}
		d.Connected = len(d.Displays) > 0
		return d, nil
	}
}
