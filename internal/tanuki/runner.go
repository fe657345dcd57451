package tanuki

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Runner starts child processes, optionally elevated via sudo -S with the
// session credential fed once to the child's stdin. Supervision mechanics:
// combined stdout+stderr on one pipe, the child isolated in its own process
// group, and a context watcher that kills the whole group on cancellation
// or timeout.
type Runner struct {
	cred *Credential
}

func newRunner(cred *Credential) *Runner {
	return &Runner{cred: cred}
}

// Process is one spawned child. It owns its streams; the function that
// created it must consume Lines() to EOF and then call Wait().
type Process struct {
	cmd    *exec.Cmd
	stdin  *os.File
	output *os.File
	cancel chan struct{}
}

type startOpts struct {
	dir        string
	env        []string
	privileged bool
}

// start spawns name args... with combined output on a single pipe.
// When privileged, the invocation is wrapped in sudo -S and the credential
// is written to stdin before anything else; the write is never echoed or
// retained anywhere outside the Credential itself.
func (r *Runner) start(ctx context.Context, opts startOpts, name string, args ...string) (*Process, error) {
	var cmd *exec.Cmd
	if opts.privileged {
		cmd = exec.Command("sudo", append([]string{"-S", name}, args...)...)
	} else {
		cmd = exec.Command(name, args...)
	}
	cmd.Dir = opts.dir
	if len(opts.env) > 0 {
		cmd.Env = append(os.Environ(), opts.env...)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	inR, inW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}

	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = outW
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	// Parent copies of the child's ends must be closed so the reader sees
	// EOF when the child exits.
	outW.Close()
	inR.Close()

	p := &Process{
		cmd:    cmd,
		stdin:  inW,
		output: outR,
		cancel: make(chan struct{}),
	}

	pgid := cmd.Process.Pid
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-p.cancel:
		}
	}()

	if opts.privileged {
		if err := r.cred.feed(inW); err != nil {
			p.Kill()
			p.Wait()
			return nil, fmt.Errorf("failed to feed credential to %s: %w", name, err)
		}
	}

	return p, nil
}

// StartPrivileged spawns a privileged invocation of name args...
func (r *Runner) StartPrivileged(ctx context.Context, name string, args ...string) (*Process, error) {
	return r.start(ctx, startOpts{privileged: true}, name, args...)
}

// Lines returns a scanner over the child's combined output.
func (p *Process) Lines() *bufio.Scanner {
	return bufio.NewScanner(p.output)
}

// Answer writes a synthetic reply to the child's stdin.
func (p *Process) Answer(s string) error {
	_, err := p.stdin.WriteString(s)
	return err
}

// CloseInput signals EOF on the child's stdin. Used after scripted answers
// so a tool that reads input to exhaustion does not hang.
func (p *Process) CloseInput() {
	p.stdin.Close()
}

// Kill forcibly terminates the child's whole process group.
func (p *Process) Kill() {
	syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
}

// Wait reaps the child and releases its streams. Must be called after the
// output has been consumed to EOF.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	close(p.cancel)
	p.stdin.Close()
	p.output.Close()
	return err
}

// exitStatus extracts a process exit code from a Wait error. Returns 0 for
// nil and -1 when the process did not exit normally.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
