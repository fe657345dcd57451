package tanuki

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSudo validates the password "hunter2" fed on stdin, answers the two
// credential probes, and otherwise executes the wrapped command with the
// rest of stdin passed through — the same contract as sudo -S.
const fakeSudo = `read -r pw
if [ "$1" = "-S" ]; then shift; fi
if [ "$pw" != "hunter2" ]; then
    echo "sudo: 1 incorrect password attempt" >&2
    exit 1
fi
if [ "$1" = "-v" ]; then exit 0; fi
if [ "$1" = "whoami" ]; then echo root; exit 0; fi
exec "$@"
`

// fakeBin creates a directory of fake tools and makes it the entire search
// path for the test, so tool probes only ever see what the test planted.
func fakeBin(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	return dir
}

// writeScript plants an executable shell script. The standard system
// directories are restored inside the script so it can use coreutils even
// though the test's PATH only holds the fake bin.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	script := "#!/bin/sh\nPATH=/usr/bin:/bin:/usr/sbin:/sbin:$PATH\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755))
}

// drainEvents collects whatever the emitter has buffered so far without
// blocking. For full runs, range over em.Events() instead.
func drainEvents(em *Emitter) []Event {
	var evs []Event
	for {
		select {
		case ev, ok := <-em.ch:
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// logText joins all log-line events into one string for substring asserts.
func logText(evs []Event) string {
	var out string
	for _, ev := range evs {
		if ev.Kind == EventLog {
			out += ev.Text + "\n"
		}
	}
	return out
}
