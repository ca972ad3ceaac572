// Package runner spawns toolchain processes and streams their output line
// by line to a listener.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSpawn is returned when the executable cannot be started.
	ErrSpawn = errors.New("failed to start command")
	// ErrWait is returned when waiting on a started process fails.
	ErrWait = errors.New("failed to wait on command")
)

// ErrorPrefix marks lines read from standard error.
const ErrorPrefix = "ERROR: "

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of process output without its terminator.
type Line struct {
	Stream Stream
	Text   string
}

// String renders the line as forwarded to the frontend.
func (l Line) String() string {
	if l.Stream == Stderr {
		return ErrorPrefix + l.Text
	}
	return l.Text
}

// Listener receives lines as they are read. A returned error is logged
// and draining continues.
type Listener func(Line) error

// Command describes a process to spawn.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Process is a started child with captured output.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until exit and reports the exit code. A non-zero exit is
	// not an error.
	Wait() (int, error)
}

// Spawner starts processes.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

// ExecSpawner starts real processes with os/exec.
type ExecSpawner struct{}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

// Spawn starts cmd with both output streams piped.
func (ExecSpawner) Spawn(ctx context.Context, c Command) (Process, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return p.cmd.ProcessState.ExitCode(), nil
}

// Outcome is the result of a completed process.
type Outcome struct {
	ExitCode int
	Duration time.Duration
}

// Success reports a zero exit code.
func (o Outcome) Success() bool { return o.ExitCode == 0 }

// Runner runs commands through a Spawner.
type Runner struct {
	spawner Spawner
	log     logrus.FieldLogger
}

// New constructs a Runner. A nil spawner uses ExecSpawner.
func New(spawner Spawner, log logrus.FieldLogger) *Runner {
	if spawner == nil {
		spawner = ExecSpawner{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{spawner: spawner, log: log.WithField("component", "runner")}
}

// RunStreaming spawns cmd and forwards every stdout and stderr line to
// listener. Each stream is drained by its own goroutine so order holds
// within a stream but not across them. Both drains finish before the
// process is waited on, so all lines are delivered when it returns.
func (r *Runner) RunStreaming(ctx context.Context, cmd Command, listener Listener) (Outcome, error) {
	log := r.log.WithFields(logrus.Fields{"cmd": cmd.Name, "dir": cmd.Dir})
	start := time.Now()

	proc, err := r.spawner.Spawn(ctx, cmd)
	if err != nil {
		log.WithError(err).Error("spawn failed")
		return Outcome{}, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	log.WithField("args", cmd.Args).Info("process started")

	var g errgroup.Group
	g.Go(func() error { return r.drain(log, Stdout, proc.Stdout(), listener) })
	g.Go(func() error { return r.drain(log, Stderr, proc.Stderr(), listener) })
	_ = g.Wait()

	code, err := proc.Wait()
	outcome := Outcome{ExitCode: code, Duration: time.Since(start)}
	if err != nil {
		log.WithError(err).Error("wait failed")
		return outcome, fmt.Errorf("%w: %w", ErrWait, err)
	}
	log.WithFields(logrus.Fields{"exit_code": code, "duration": outcome.Duration}).Info("process exited")
	return outcome, nil
}

// MaxLineBytes bounds a single delivered line. Longer lines are cut at the
// limit and the rest of that line is skipped, so the line count is kept.
const MaxLineBytes = 1024 * 1024

// drain reads lines until EOF. A read error still empties the pipe so the
// child never blocks on a full buffer.
func (r *Runner) drain(log logrus.FieldLogger, stream Stream, reader io.Reader, listener Listener) error {
	log = log.WithField("stream", stream)
	br := bufio.NewReaderSize(reader, 64*1024)
	deliver := func(text string) {
		if listener == nil {
			return
		}
		if err := listener(Line{Stream: stream, Text: text}); err != nil {
			log.WithError(err).Warn("line listener failed")
		}
	}

	count := 0
	for {
		text, dropped, err := readLine(br, MaxLineBytes)
		if err != nil {
			if text != "" {
				count++
				deliver(text)
			}
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Warn("output stream read failed")
				_, _ = io.Copy(io.Discard, reader)
			}
			break
		}
		if dropped > 0 {
			log.WithField("dropped_bytes", dropped).Warn("output line truncated")
		}
		count++
		deliver(text)
	}
	log.WithField("lines", count).Debug("stream drained")
	return nil
}

// readLine returns the next line without its terminator, keeping at most
// limit bytes and reporting how many were skipped.
func readLine(br *bufio.Reader, limit int) (string, int, error) {
	var line []byte
	dropped := 0
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return string(line), dropped, err
		}
		if room := limit - len(line); len(chunk) > room {
			dropped += len(chunk) - room
			chunk = chunk[:room]
		}
		line = append(line, chunk...)
		if !isPrefix {
			return string(line), dropped, nil
		}
	}
}
