package tanuki

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed assets/patterns.toml
var embeddedPatterns embed.FS

// Patterns holds every text-matching table the pipeline consults when
// inferring control flow from child-process output. Control logic never
// hard-codes a phrase; it always goes through one of the methods below.
type Patterns struct {
	Version   int               `toml:"version"`
	Converter converterPatterns `toml:"converter"`
	Installer installerPatterns `toml:"installer"`
	Bootstrap bootstrapPatterns `toml:"bootstrap"`
}

type converterPatterns struct {
	NoisePrefixes    []string `toml:"noise_prefixes"`
	ArtifactSuffixes []string `toml:"artifact_suffixes"`
}

type installerPatterns struct {
	PromptPhrases []string `toml:"prompt_phrases"`
	Hints         []hint   `toml:"hints"`
}

type hint struct {
	Match  []string `toml:"match"`
	Advice string   `toml:"advice"`
}

type bootstrapPatterns struct {
	RedactSubstrings []string  `toml:"redact_substrings"`
	Backends         []backend `toml:"backends"`
}

// backend is one alternative package manager able to install the converter.
type backend struct {
	Name        string   `toml:"name"`
	InstallArgs []string `toml:"install_args"`
}

// installCommand expands the backend's install arguments for pkg.
func (b backend) installCommand(pkg string) []string {
	args := make([]string, 0, len(b.InstallArgs))
	for _, a := range b.InstallArgs {
		args = append(args, strings.ReplaceAll(a, "{pkg}", pkg))
	}
	return args
}

// loadPatterns returns the embedded default tables, overridden by the file
// at path when it exists. A missing override file is normal; a malformed
// one is an error so a bad edit cannot silently revert to defaults.
func loadPatterns(path string) (*Patterns, error) {
	data, err := embeddedPatterns.ReadFile("assets/patterns.toml")
	if err != nil {
		return nil, fmt.Errorf("embedded pattern tables unreadable: %w", err)
	}

	if path != "" {
		if override, rerr := os.ReadFile(path); rerr == nil {
			data = override
			debugf("using pattern tables from %s\n", path)
		}
	}

	var p Patterns
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pattern tables: %w", err)
	}
	return &p, nil
}

// matchesPrompt reports whether an installer output line is one of the known
// interactive confirmation prompts.
func (p *Patterns) matchesPrompt(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range p.Installer.PromptPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// classifyFailure matches the accumulated installer output against the hint
// table and returns the advice for the first matching entry, or "".
func (p *Patterns) classifyFailure(output string) string {
	lower := strings.ToLower(output)
	for _, h := range p.Installer.Hints {
		for _, m := range h.Match {
			if strings.Contains(lower, m) {
				return h.Advice
			}
		}
	}
	return ""
}

// isNoise reports whether a converter output line is tool decoration.
func (p *Patterns) isNoise(line string) bool {
	for _, prefix := range p.Converter.NoisePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// shouldRedact reports whether a streamed line must be withheld from the
// log because it may carry credential material.
func (p *Patterns) shouldRedact(line string) bool {
	lower := strings.ToLower(line)
	for _, sub := range p.Bootstrap.RedactSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// isArtifact reports whether name looks like a converted native package.
func (p *Patterns) isArtifact(name string) bool {
	for _, suffix := range p.Converter.ArtifactSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
