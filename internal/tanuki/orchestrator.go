package tanuki

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InstallRequest identifies one installation run.
type InstallRequest struct {
	SourcePath string
}

// Orchestrator sequences one installation: ensure the converter exists,
// prepare an ephemeral workspace, copy the input, convert, install, clean
// up. It runs on a dedicated worker goroutine and talks to the presentation
// layer exclusively through the Emitter. One run per process; there is no
// cancellation path once a run starts.
type Orchestrator struct {
	cfg    *Config
	pat    *Patterns
	runner *Runner
	em     *Emitter

	workDir string
	cleaned bool
}

func newOrchestrator(cfg *Config, pat *Patterns, runner *Runner, em *Emitter) *Orchestrator {
	return &Orchestrator{cfg: cfg, pat: pat, runner: runner, em: em}
}

// estimateSeconds computes the user-facing time estimates from the input
// size. Purely informational; only the conversion step enforces a limit.
func estimateSeconds(sizeBytes int64) (convert, install int) {
	mb := float64(sizeBytes) / (1024 * 1024)
	convert = int(mb * 2)
	if convert < 10 {
		convert = 10
	}
	install = int(mb * 0.5)
	if install < 5 {
		install = 5
	}
	return convert, install
}

func stepBanner(em *Emitter, title string) {
	em.Log(strings.Repeat("=", 50))
	em.Log(title)
	em.Log(strings.Repeat("=", 50))
}

// Run executes the full pipeline and always ends with exactly one terminal
// result event. Panics are caught here and reported with elapsed time; the
// workspace is removed on every path.
func (o *Orchestrator) Run(ctx context.Context, req InstallRequest) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.cleanup()
			elapsed := time.Since(start).Seconds()
			o.em.Result(false, fmt.Sprintf("Error after %.1fs: %v", elapsed, r))
		}
	}()
	defer o.cleanup()

	fail := func(format string, a ...any) {
		o.cleanup()
		o.em.Result(false, fmt.Sprintf(format, a...))
	}

	info, err := os.Stat(req.SourcePath)
	if err != nil {
		fail("cannot read package file: %v", err)
		return
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	convEst, instEst := estimateSeconds(info.Size())
	totalEst := convEst + instEst + 5

	debName := filepath.Base(req.SourcePath)
	o.em.Logf("package: %s", debName)
	o.em.Logf("size: %.1f MB", sizeMB)
	o.em.Logf("estimated time: ~%d seconds", totalEst)
	o.em.Timing("Estimated time: ~%d seconds", totalEst)

	// Step 1: converter availability
	o.em.Status(fmt.Sprintf("Checking for %s...", o.cfg.ConverterTool))
	o.em.Percent(5)
	stepBanner(o.em, "STEP 1/4: Checking "+o.cfg.ConverterTool)

	stepStart := time.Now()
	if err := ensureConverter(ctx, o.cfg, o.pat, o.runner, o.em); err != nil {
		fail("%s setup failed: %v", o.cfg.ConverterTool, err)
		return
	}
	o.em.Timing("%s check completed in %.1fs", o.cfg.ConverterTool, time.Since(stepStart).Seconds())

	// Step 2: workspace
	o.em.Status("Preparing workspace...")
	o.em.Percent(10)
	stepBanner(o.em, "STEP 2/4: Preparing workspace")

	o.workDir, err = os.MkdirTemp(tmpDir, "tanuki-")
	if err != nil {
		fail("failed to create working directory: %v", err)
		return
	}
	o.em.Logf("working directory: %s", o.workDir)

	// Step 3: copy input, peek metadata
	o.em.Status("Copying package file...")
	o.em.Percent(15)

	stepStart = time.Now()
	workCopy := filepath.Join(o.workDir, debName)
	if err := copyFile(req.SourcePath, workCopy); err != nil {
		fail("failed to copy package into workspace: %v", err)
		return
	}
	o.em.Timing("File copied in %.1fs", time.Since(stepStart).Seconds())

	inspectPackage(workCopy, o.em)
	warnIfLowSpace(info.Size(), o.em)

	// Step 4: convert
	o.em.Status(fmt.Sprintf("Converting package... (est. %ds)", convEst))
	o.em.Percent(20)
	stepBanner(o.em, "STEP 3/4: Converting package")
	o.em.Logf("converting %s to native package...", debName)

	stepStart = time.Now()
	artifact, err := convertPackage(ctx, o.cfg, o.pat, o.runner, o.workDir, debName, o.em)
	if err != nil {
		fail("failed to convert package after %.1fs: %v", time.Since(stepStart).Seconds(), err)
		return
	}
	convSecs := time.Since(stepStart).Seconds()

	pkgSizeMB := 0.0
	if ainfo, err := os.Stat(artifact); err == nil {
		pkgSizeMB = float64(ainfo.Size()) / (1024 * 1024)
	}
	o.em.Logf("conversion completed in %.1fs", convSecs)
	o.em.Logf("generated: %s (%.1f MB)", filepath.Base(artifact), pkgSizeMB)
	o.em.Timing("Conversion completed in %.1fs", convSecs)
	o.em.Percent(70)

	// Step 5: install
	o.em.Status(fmt.Sprintf("Installing package... (%.1f MB)", pkgSizeMB))
	o.em.Percent(75)
	stepBanner(o.em, "STEP 4/4: Installing package")

	stepStart = time.Now()
	if err := installArtifact(ctx, o.cfg, o.pat, o.runner, artifact, o.em); err != nil {
		fail("failed to install package after %.1fs: %v", time.Since(stepStart).Seconds(), err)
		return
	}
	o.em.Timing("Installation completed in %.1fs", time.Since(stepStart).Seconds())

	totalSecs := time.Since(start).Seconds()
	o.em.Status("Installation completed!")
	o.em.Percent(100)
	o.em.Timing("Total time: %.1fs", totalSecs)

	o.cleanup()
	o.em.Result(true, fmt.Sprintf("Package installed successfully!\nTotal time: %.1f seconds", totalSecs))
}

// cleanup removes the working directory. Safe to call any number of times;
// removal failures are swallowed, cleanup is never itself a failure point.
func (o *Orchestrator) cleanup() {
	if o.workDir == "" || o.cleaned {
		return
	}
	o.cleaned = true
	o.em.Log("cleaning up temporary files...")
	_ = os.RemoveAll(o.workDir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
