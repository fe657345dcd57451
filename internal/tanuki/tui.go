package tanuki

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// runInstallTUI renders one installation run as a full-screen console:
// header with status and percent, scrolling log pane, key hints in the
// footer. It consumes the event stream until the terminal result and then
// waits for the user to quit. Returns the run's success flag.
func runInstallTUI(em *Emitter, pkgName string) bool {
	app := tview.NewApplication()

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetTextAlign(tview.AlignLeft)
	header.SetBorder(true)
	header.SetTitle(fmt.Sprintf(" tanuki: %s ", pkgName))

	logView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetScrollable(true).
		SetChangedFunc(func() {
			app.Draw()
		})
	logView.SetBorder(true)
	logView.SetTitle(" Console Output ")

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetTextAlign(tview.AlignLeft)
	footer.SetBorder(true)
	footer.SetText("[gray]Installation in progress | ↑ ↓ to scroll[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 4, 0, false).
		AddItem(logView, 0, 1, true).
		AddItem(footer, 3, 0, false)

	var (
		status  string
		timing  string
		percent int
		done    bool
		success bool
	)

	refreshHeader := func() {
		header.SetText(fmt.Sprintf("[yellow]%s[white]  [%d%%]\n[gray]%s[white]", status, percent, timing))
	}

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlQ, tcell.KeyEsc:
			if done {
				app.Stop()
				return nil
			}
		case tcell.KeyRune:
			if event.Rune() == 'q' && done {
				app.Stop()
				return nil
			}
		}
		return event
	})

	go func() {
		for ev := range em.Events() {
			ev := ev
			app.QueueUpdateDraw(func() {
				switch ev.Kind {
				case EventStatus:
					status = ev.Text
					refreshHeader()
				case EventPercent:
					percent = ev.Percent
					refreshHeader()
				case EventTiming:
					timing = ev.Text
					refreshHeader()
				case EventLog:
					fmt.Fprintln(tview.ANSIWriter(logView), ev.Text)
					logView.ScrollToEnd()
				case EventResult:
					done = true
					success = ev.Success
					if ev.Success {
						footer.SetText("[green]" + tview.Escape(ev.Text) + "[white] | press 'q' to quit")
					} else {
						footer.SetText("[red]" + tview.Escape(ev.Text) + "[white] | press 'q' to quit")
					}
					refreshHeader()
				}
			})
		}
	}()

	app.SetRoot(flex, true).SetFocus(logView)
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tui:", err)
		return false
	}
	return success
}

// pickPackageTUI shows a selectable list of foreign packages found under
// dir. Returns the chosen path, or "" when the user backed out.
func pickPackageTUI(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.deb"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no .deb packages found in %s", dir)
	}
	sort.Strings(matches)

	app := tview.NewApplication()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true)
	list.SetTitle(" Select a package to install (Esc to cancel) ")

	var chosen string
	for _, m := range matches {
		m := m
		list.AddItem(filepath.Base(m), "", 0, func() {
			chosen = m
			app.Stop()
		})
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(list, true).Run(); err != nil {
		return "", err
	}
	return chosen, nil
}
