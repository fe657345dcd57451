package tanuki

import "os/exec"

// toolAvailable reports whether an executable resolves on the search path.
// Absence is a normal result, not a failure.
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
