package tanuki

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func usage() {
	fmt.Println(`tanuki - install foreign (.deb) packages on Arch-based systems

Usage:
  tanuki [options] [package.deb]

With no package argument, tanuki prompts for a file (or shows a picker of
~/Downloads in TUI mode).

Options:
  -y, --yes       skip the confirmation prompt
  -t, --tui       full-screen terminal interface
  -d, --debug     verbose debug output
  -V, --version   print version and exit
  -h, --help      this help`)
}

// Run is the command-line entry point. Returns the process exit code.
func Run(args []string) int {
	var (
		assumeYes bool
		useTUI    bool
		debugFlag bool
		path      string
	)

	for _, a := range args {
		switch a {
		case "-h", "--help":
			usage()
			return 0
		case "-V", "--version":
			fmt.Printf("tanuki %s (%s)\n", version, buildDate)
			return 0
		case "-y", "--yes":
			assumeYes = true
		case "-t", "--tui":
			useTUI = true
		case "-d", "--debug":
			debugFlag = true
		default:
			if strings.HasPrefix(a, "-") {
				cPrintf(colError, "unknown option: %s\n", a)
				usage()
				return 1
			}
			if path != "" {
				cPrintln(colError, "only one package file may be given")
				return 1
			}
			path = a
		}
	}

	cfg, err := loadConfig(ConfigFile)
	if err != nil {
		cPrintf(colWarn, "warning: could not read %s: %v\n", ConfigFile, err)
	}
	initConfig(cfg)
	if debugFlag {
		Debug = true
	}

	pat, err := loadPatterns(PatternsFile)
	if err != nil {
		cPrintln(colError, err)
		return 1
	}

	// Advisory platform check: warn and confirm on non-Arch systems.
	if supported, checked := platformSupported(); checked && !supported {
		cPrintln(colWarn, "This tool is designed for Arch Linux.")
		if !assumeYes && !askForConfirmation(colWarn, "Continue anyway?") {
			return 1
		}
	}

	if path == "" {
		path = selectPackage(useTUI)
		if path == "" {
			cPrintln(colError, "no package selected")
			return 1
		}
	}

	if !strings.HasSuffix(path, ".deb") {
		cPrintln(colError, "please select a .deb package file")
		return 1
	}
	if _, err := os.Stat(path); err != nil {
		cPrintf(colError, "file not found: %s\n", path)
		return 1
	}

	pkgName := filepath.Base(path)
	if !assumeYes && !askForConfirmation(colInfo, "Install %s?", pkgName) {
		return 0
	}

	ctx := context.Background()

	cred, err := promptCredential(ctx)
	if err != nil {
		cPrintln(colError, err)
		return 1
	}
	defer cred.Wipe()

	em := newEmitter()
	orch := newOrchestrator(cfg, pat, newRunner(cred), em)
	go orch.Run(ctx, InstallRequest{SourcePath: path})

	var ok bool
	if useTUI {
		ok = runInstallTUI(em, pkgName)
	} else {
		ok = renderConsole(em)
	}
	if ok {
		return 0
	}
	return 1
}

// selectPackage asks the user for an input file when none was given on the
// command line.
func selectPackage(useTUI bool) string {
	if useTUI {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		chosen, err := pickPackageTUI(filepath.Join(home, "Downloads"))
		if err != nil {
			cPrintln(colWarn, err)
			return askForPath(colInfo, "Path to .deb package")
		}
		return chosen
	}
	return askForPath(colInfo, "Path to .deb package")
}
