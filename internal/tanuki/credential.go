package tanuki

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Error taxonomy for the credential and pipeline steps.
var (
	// errCredentialInvalid: blank secret or rejected by the privilege probe.
	// Recoverable; the frontend re-prompts.
	errCredentialInvalid = errors.New("credential rejected")
	// errCredentialUnauthorized: the account has no privilege-escalation
	// rights at all. Fatal; the application terminates.
	errCredentialUnauthorized = errors.New("account not authorized for privilege escalation")
	// errConversionTimeout: the converter exceeded its hard time limit.
	errConversionTimeout = errors.New("conversion timed out")
)

// Credential holds the privileged-access secret for one session. It is the
// only place the secret lives: it is fed to child processes' stdin by the
// Runner, never logged, never persisted, and wiped when the session ends.
type Credential struct {
	mu     sync.Mutex
	secret []byte
}

func newCredential(secret string) *Credential {
	return &Credential{secret: []byte(secret)}
}

func (c *Credential) blank() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(bytes.TrimSpace(c.secret)) == 0
}

// feed writes the secret plus a terminating newline to w. The caller must
// not buffer or echo what was written.
func (c *Credential) feed(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := w.Write(c.secret); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// Wipe zeroes the secret in place. The credential is unusable afterwards.
func (c *Credential) Wipe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil
}

// probe runs one privileged probe command, feeding the secret on stdin, and
// returns captured stdout and stderr. The secret never appears in either.
func (c *Credential) probe(ctx context.Context, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sudo", append([]string{"-S"}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", "", -1, err
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return "", "", -1, err
	}
	feedErr := c.feed(stdin)
	stdin.Close()

	err = cmd.Wait()
	if feedErr != nil {
		return stdout.String(), stderr.String(), -1, feedErr
	}
	return stdout.String(), stderr.String(), exitStatus(err), err
}

// Validate checks the stored secret against the platform's privilege
// escalation mechanism. A blank secret fails without invoking anything.
// Stage 1 authenticates and extends the privilege timeout (sudo -v); stage 2
// confirms commands actually run as the superuser (sudo whoami -> root).
func (c *Credential) Validate(ctx context.Context) error {
	if c.blank() {
		return fmt.Errorf("%w: password cannot be empty", errCredentialInvalid)
	}

	_, stderr, code, err := c.probe(ctx, "-v")
	if err != nil || code != 0 {
		return classifyProbeFailure(stderr)
	}

	stdout, _, code, err := c.probe(ctx, "whoami")
	if err != nil || code != 0 || !strings.Contains(stdout, "root") {
		return fmt.Errorf("%w: password accepted but privileged commands do not run as root", errCredentialInvalid)
	}

	return nil
}

// classifyProbeFailure maps the probe's error text onto the taxonomy.
// The distinction matters: a wrong password re-prompts, a sudoers rejection
// terminates the application.
func classifyProbeFailure(stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "not in the sudoers file"):
		return errCredentialUnauthorized
	case strings.Contains(lower, "incorrect password"), strings.Contains(lower, "sorry"):
		return fmt.Errorf("%w: incorrect password", errCredentialInvalid)
	case msg == "":
		return fmt.Errorf("%w: authentication failed", errCredentialInvalid)
	default:
		return fmt.Errorf("%w: %s", errCredentialInvalid, msg)
	}
}
