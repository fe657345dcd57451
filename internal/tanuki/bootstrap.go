package tanuki

import (
	"context"
	"fmt"
	"strings"
)

// ensureConverter makes sure the converter tool is on the path, installing
// it through the first working backend package manager when absent. On a
// successful install it also refreshes the converter's reference database;
// a failed refresh is logged and tolerated.
func ensureConverter(ctx context.Context, cfg *Config, pat *Patterns, r *Runner, em *Emitter) error {
	tool := cfg.ConverterTool

	if toolAvailable(tool) {
		em.Logf("%s found and ready", tool)
		return nil
	}

	em.Logf("%s not found, attempting auto-install...", tool)

	var attempted []string
	for _, b := range pat.Bootstrap.Backends {
		if !toolAvailable(b.Name) {
			debugf("backend %s not on path, skipping\n", b.Name)
			continue
		}

		em.Logf("found %s, installing %s...", b.Name, tool)
		attempted = append(attempted, b.Name)

		code, err := streamPrivileged(ctx, r, pat, em, b.Name, b.installCommand(tool)...)
		if err != nil {
			em.Logf("error running %s: %v", b.Name, err)
			continue
		}
		if code != 0 {
			em.Logf("%s installation failed (exit code: %d)", b.Name, code)
			continue
		}

		if !toolAvailable(tool) {
			em.Logf("installation completed but %s still not found", tool)
			continue
		}
		em.Logf("%s installation verified", tool)

		refreshConverterDB(ctx, cfg, pat, r, em)
		return nil
	}

	// Every candidate was absent, failed, or failed verification. Report
	// which backends were even present to aid manual recovery.
	em.Log("auto-installation failed with all package managers")
	em.Log("available package managers checked:")
	for _, b := range pat.Bootstrap.Backends {
		if toolAvailable(b.Name) {
			em.Logf("   %s - available", b.Name)
		} else {
			em.Logf("   %s - not found", b.Name)
		}
	}

	if len(attempted) == 0 {
		return fmt.Errorf("%s is not installed and no backend package manager is available", tool)
	}
	return fmt.Errorf("%s auto-install failed (tried: %s)", tool, strings.Join(attempted, ", "))
}

// refreshConverterDB updates the converter's internal reference database.
// Failure here is non-fatal: the converter is installed and usable, the
// database can be refreshed manually later.
func refreshConverterDB(ctx context.Context, cfg *Config, pat *Patterns, r *Runner, em *Emitter) {
	em.Logf("updating %s database...", cfg.ConverterTool)

	code, err := streamPrivileged(ctx, r, pat, em, cfg.ConverterTool, "-u")
	if err != nil || code != 0 {
		em.Logf("warning: database update had issues, but %s is installed", cfg.ConverterTool)
		em.Logf("you can update manually later with: sudo %s -u", cfg.ConverterTool)
		return
	}
	em.Logf("%s database updated successfully", cfg.ConverterTool)
}

// streamPrivileged runs one privileged invocation, relaying its output to
// the log stream line by line. Any line that may carry credential material
// is withheld before emission. Returns the process exit status.
func streamPrivileged(ctx context.Context, r *Runner, pat *Patterns, em *Emitter, name string, args ...string) (int, error) {
	p, err := r.StartPrivileged(ctx, name, args...)
	if err != nil {
		return -1, err
	}

	scanner := p.Lines()
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" || pat.shouldRedact(line) {
			continue
		}
		em.Log("  " + line)
	}

	return exitStatus(p.Wait()), nil
}
