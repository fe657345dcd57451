package tanuki

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// platformSupported inspects the platform identification file for the
// expected signature. The result is advisory: an unknown platform only
// triggers a confirmation, never a hard stop. The second return reports
// whether the check could be performed at all.
func platformSupported() (bool, bool) {
	data, err := os.ReadFile(osReleaseFile)
	if err != nil {
		return false, false
	}
	return strings.Contains(strings.ToLower(string(data)), "arch"), true
}

// freeSpace returns the available bytes on the filesystem holding path.
func freeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// warnIfLowSpace logs a warning when the temp filesystem has less than
// three times the input size available. Conversion keeps the original, the
// converted artifact and the installer's work on disk at once.
func warnIfLowSpace(inputSize int64, em *Emitter) {
	avail, err := freeSpace(tmpDir)
	if err != nil {
		debugf("statfs %s failed: %v\n", tmpDir, err)
		return
	}
	if need := uint64(inputSize) * 3; avail < need {
		em.Logf("warning: low disk space on %s (%.1f MB free, ~%.1f MB needed)",
			tmpDir, float64(avail)/(1024*1024), float64(need)/(1024*1024))
	}
}
