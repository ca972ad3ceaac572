package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrLaunch is returned when a detached program cannot be started.
var ErrLaunch = errors.New("failed to launch")

// Launcher starts programs that outlive the request, such as a terminal
// window or the file manager. Success only means the program started.
type Launcher struct {
	goos     string
	terminal string
	explorer string
	start    func(*exec.Cmd) error
	log      logrus.FieldLogger
}

// NewLauncher constructs a Launcher for the running OS. Empty terminal or
// explorer names select the platform default.
func NewLauncher(terminal, explorer string, log logrus.FieldLogger) *Launcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Launcher{
		goos:     runtime.GOOS,
		terminal: terminal,
		explorer: explorer,
		log:      log.WithField("component", "launcher"),
	}
	l.start = l.startDetached
	return l
}

func (l *Launcher) startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			l.log.WithError(err).WithField("cmd", cmd.Path).Debug("detached process exited")
		}
	}()
	return nil
}

// OpenTerminal opens an interactive terminal in dir running command, then
// leaves the user at a shell.
func (l *Launcher) OpenTerminal(dir, command string) error {
	name, args := terminalCommand(l.goos, l.terminal, dir, command)
	return l.launch(dir, name, args)
}

// OpenExplorer shows path in the platform file manager.
func (l *Launcher) OpenExplorer(path string) error {
	name := l.explorer
	if name == "" {
		name = defaultExplorer(l.goos)
	}
	return l.launch("", name, []string{path})
}

func (l *Launcher) launch(dir, name string, args []string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if err := l.start(cmd); err != nil {
		l.log.WithError(err).WithField("cmd", name).Error("launch failed")
		return fmt.Errorf("%w %s: %w", ErrLaunch, name, err)
	}
	l.log.WithFields(logrus.Fields{"cmd": name, "args": args}).Info("launched")
	return nil
}

func defaultExplorer(goos string) string {
	switch goos {
	case "windows":
		return "explorer"
	case "darwin":
		return "open"
	default:
		return "xdg-open"
	}
}

// terminalCommand builds the invocation that runs command in a new
// terminal window on goos.
func terminalCommand(goos, terminal, dir, command string) (string, []string) {
	switch goos {
	case "windows":
		if terminal == "" {
			terminal = "cmd"
		}
		return terminal, []string{"/C", "start", "cmd", "/K", command}
	case "darwin":
		if terminal == "" {
			terminal = "osascript"
		}
		script := fmt.Sprintf("cd %s && %s", shellQuote(dir), command)
		return terminal, []string{"-e", fmt.Sprintf(`tell application "Terminal" to do script %q`, script)}
	default:
		if terminal == "" {
			terminal = "x-terminal-emulator"
		}
		return terminal, []string{"-e", "sh", "-c", command + `; exec "${SHELL:-sh}"`}
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
