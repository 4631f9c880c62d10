// Package deps reports whether the external tools job steps invoke are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"vidqueue/internal/config"
)

// Requirement defines an external tool job steps rely on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools the configured pipeline invokes.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Extracts, encodes and muxes streams"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Inspects sources before planning"},
	}
	if cfg.Tools.VideoEncoder == "drapto" {
		reqs[0].Description = "Extracts and muxes streams; drapto also resolves ffmpeg from PATH"
	}
	vspipe := Requirement{
		Name:        "VSPipe",
		Command:     cfg.Tools.VSPipe,
		Description: "Feeds frames from generated VapourSynth scripts",
		Optional:    true,
	}
	if vspipe.Command != "" {
		vspipe.Optional = false
	} else {
		vspipe.Command = "vspipe"
	}
	return append(reqs, vspipe)
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		if err := unix.Access(resolved, unix.X_OK); err != nil {
			status.Detail = fmt.Sprintf("binary %q not executable: %v", resolved, err)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}
