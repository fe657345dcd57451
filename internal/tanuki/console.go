package tanuki

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// promptCredential asks for the privileged-access password on the terminal
// and validates it, re-prompting until validation succeeds. There is no
// retry limit; only an unauthorized account or a read error (user cancel,
// closed tty) ends the loop.
func promptCredential(ctx context.Context) (*Credential, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	cPrintln(colInfo, "Administrator privileges are required to install packages.")

	for {
		fmt.Fprint(os.Stderr, "Password: ")
		pass, err := term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}

		cred := newCredential(string(pass))
		cPrintln(colInfo, "Validating administrator credentials...")

		verr := cred.Validate(ctx)
		if verr == nil {
			colArrow.Print("-> ")
			colSuccess.Println("Administrator access confirmed")
			return cred, nil
		}

		cred.Wipe()
		if errors.Is(verr, errCredentialUnauthorized) {
			return nil, fmt.Errorf("%w: contact your system administrator", verr)
		}
		cPrintln(colError, verr.Error())
	}
}

// renderConsole drains the event stream onto the terminal: status and
// percent drive a progress bar, log lines go to stdout, timing notes are
// highlighted. Returns the run's final success flag.
func renderConsole(em *Emitter) bool {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Preparing installation..."),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	success := false
	message := ""
	for ev := range em.Events() {
		switch ev.Kind {
		case EventStatus:
			bar.Describe(ev.Text)
		case EventPercent:
			_ = bar.Set(ev.Percent)
		case EventTiming:
			cPrintf(colNote, "%s\n", ev.Text)
		case EventLog:
			fmt.Println(ev.Text)
		case EventResult:
			success = ev.Success
			message = ev.Text
		}
	}
	_ = bar.Finish()

	fmt.Println()
	if success {
		colArrow.Print("-> ")
		colSuccess.Println(message)
	} else {
		colArrow.Print("-> ")
		colError.Println(message)
	}
	return success
}
