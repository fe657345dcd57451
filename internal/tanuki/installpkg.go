package tanuki

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// installArtifact installs the converted package through the privileged
// system package manager, supervising its live output. Known interactive
// confirmation prompts are answered affirmatively; each answer is noted in
// the log. The read loop is guarded by an output-inactivity watchdog so an
// unknown prompt cannot block the worker forever.
func installArtifact(ctx context.Context, cfg *Config, pat *Patterns, r *Runner, artifact string, em *Emitter) error {
	em.Logf("running: sudo pacman -U --noconfirm --needed %s", filepath.Base(artifact))

	p, err := r.StartPrivileged(ctx, "pacman", "-U", "--noconfirm", "--needed", artifact)
	if err != nil {
		return fmt.Errorf("could not start installation process: %w", err)
	}

	var stalled atomic.Bool
	watchdog := time.AfterFunc(cfg.InstallIdle, func() {
		stalled.Store(true)
		p.Kill()
	})
	defer watchdog.Stop()

	var output strings.Builder
	var lastLine string

	scanner := p.Lines()
	for scanner.Scan() {
		watchdog.Reset(cfg.InstallIdle)

		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" {
			continue
		}
		em.Log(line)
		output.WriteString(line)
		output.WriteByte('\n')
		lastLine = line

		if pat.matchesPrompt(line) {
			if err := p.Answer("y\n"); err != nil {
				debugf("failed to answer prompt: %v\n", err)
			} else {
				em.Log("-> automatically answered 'y'")
			}
		}
	}

	waitErr := p.Wait()
	watchdog.Stop()

	if stalled.Load() {
		if lastLine != "" {
			return fmt.Errorf("install stalled for %s with no output; possible unknown prompt: %q", cfg.InstallIdle, lastLine)
		}
		return fmt.Errorf("install stalled for %s with no output", cfg.InstallIdle)
	}

	code := exitStatus(waitErr)
	if code != 0 {
		if hint := pat.classifyFailure(output.String()); hint != "" {
			em.Logf("tip: %s", hint)
			return fmt.Errorf("installation failed with return code %d (%s)", code, hint)
		}
		return fmt.Errorf("installation failed with return code %d", code)
	}

	em.Log("package installed successfully")
	return nil
}
