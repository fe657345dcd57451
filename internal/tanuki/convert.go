package tanuki

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// packageBaseName derives the converter's "package name" answer from the
// input filename: the prefix up to the first underscore
// ("myapp_1.0_amd64.deb" -> "myapp").
func packageBaseName(filename string) string {
	return strings.Split(filepath.Base(filename), "_")[0]
}

// convertPackage drives the converter tool against the input file already
// copied into workDir and returns the path of the produced native package.
//
// The converter prompts for package name, maintainer and license on stdin;
// it gets the filename-derived base name and two empty answers. The run is
// bounded by cfg.ConvertTimeout; on expiry the process group is killed and
// the step fails with errConversionTimeout.
func convertPackage(ctx context.Context, cfg *Config, pat *Patterns, r *Runner, workDir, debName string, em *Emitter) (string, error) {
	base := packageBaseName(debName)
	em.Logf("detected package name: %s", base)

	runCtx, cancel := context.WithTimeout(ctx, cfg.ConvertTimeout)
	defer cancel()

	p, err := r.start(runCtx, startOpts{
		dir: workDir,
		env: []string{"DEBTAP_NOCOLOR=1"},
	}, cfg.ConverterTool, "-Q", debName)
	if err != nil {
		return "", err
	}

	// Scripted answers: package name, maintainer (empty), license (empty).
	if err := p.Answer(base + "\n\n\n"); err != nil {
		debugf("failed to write converter answers: %v\n", err)
	}
	p.CloseInput()

	scanner := p.Lines()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || pat.isNoise(line) {
			continue
		}
		em.Log(line)
	}

	waitErr := p.Wait()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		em.Logf("conversion timed out after %s", cfg.ConvertTimeout)
		return "", errConversionTimeout
	}
	if code := exitStatus(waitErr); code != 0 {
		return "", fmt.Errorf("%s failed with return code: %d", cfg.ConverterTool, code)
	}

	return findArtifact(pat, workDir, em)
}

// findArtifact scans the working directory for the converted package. When
// no candidate exists the directory contents are enumerated as a diagnostic.
// When several match, the newest by modification time wins; listing order is
// never load-bearing.
func findArtifact(pat *Patterns, workDir string, em *Emitter) (string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to scan working directory: %w", err)
	}

	type candidate struct {
		name string
		mod  int64
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !pat.isArtifact(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{name: e.Name(), mod: info.ModTime().UnixNano()})
	}

	if len(found) == 0 {
		em.Log("no package file generated")
		em.Log("files in working directory:")
		for _, e := range entries {
			em.Logf("  - %s", e.Name())
		}
		return "", fmt.Errorf("converter produced no package file")
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mod > found[j].mod })
	if len(found) > 1 {
		em.Logf("warning: %d candidate packages generated, using newest: %s", len(found), found[0].name)
	}

	em.Logf("found generated package: %s", found[0].name)
	return filepath.Join(workDir, found[0].name), nil
}
