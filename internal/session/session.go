// Package session owns the single serial port the IDE talks to.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"

	serial "github.com/allbin/go-serial-ide"
)

var (
	// ErrPortNotFound is returned when the requested name is not enumerated.
	ErrPortNotFound = errors.New("port not found")
	// ErrEnumeration is returned when the port list cannot be fetched.
	ErrEnumeration = errors.New("no ports available")
	// ErrPortOpen wraps the OS refusal to open a port.
	ErrPortOpen = errors.New("failed to open port")
	// ErrNoPortOpen is returned by Read, Write and Close in the closed state.
	ErrNoPortOpen = errors.New("no port is open")
	// ErrRead wraps an OS read failure.
	ErrRead = errors.New("failed to read from port")
	// ErrWrite wraps an OS write failure.
	ErrWrite = errors.New("failed to write to port")
)

// Enumerator lists the port names Open accepts.
type Enumerator interface {
	Ports() ([]string, error)
}

// Opener opens a port with the session's settings.
type Opener func(name string, opts ...serial.Option) (serial.Port, error)

// Config holds the session-wide port settings.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
	ReadBuffer  int
}

// DefaultConfig is 9600 baud, a one second read timeout and 1 KiB reads.
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		ReadTimeout: time.Second,
		ReadBuffer:  1024,
	}
}

// Session guards at most one open port. Every operation holds the same
// mutex for its whole body.
type Session struct {
	mu         sync.Mutex
	port       serial.Port
	enumerator Enumerator
	open       Opener
	cfg        Config
	log        logrus.FieldLogger
}

// New constructs a closed Session. A nil opener uses serial.Open.
func New(enumerator Enumerator, open Opener, cfg Config, log logrus.FieldLogger) *Session {
	if open == nil {
		open = serial.Open
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	defaults := DefaultConfig()
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = defaults.BaudRate
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = defaults.ReadBuffer
	}
	if cfg.ReadTimeout < 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	return &Session{
		enumerator: enumerator,
		open:       open,
		cfg:        cfg,
		log:        log.WithField("component", "session"),
	}
}

// portOptions maps Config onto serial options. The timeout is rounded to
// the 100ms resolution of the termios layer.
func (c Config) portOptions() []serial.Option {
	timeout := c.ReadTimeout.Round(100 * time.Millisecond)
	if timeout > 25500*time.Millisecond {
		timeout = 25500 * time.Millisecond
	}
	return []serial.Option{
		serial.WithBaudRate(c.BaudRate),
		serial.WithReadTimeout(timeout),
	}
}

// Open validates name against a fresh enumeration and opens it. A port that
// is already open is replaced and released once the new one is ready.
func (s *Session) Open(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ports, err := s.enumerator.Ports()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEnumeration, err)
	}
	if !slices.Contains(ports, name) {
		return ErrPortNotFound
	}

	// Reopening the held port would trip its exclusive claim.
	if s.port != nil && s.port.Name() == name {
		s.release()
	}

	port, err := s.open(name, s.cfg.portOptions()...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPortOpen, err)
	}

	s.release()
	s.port = port
	s.log.WithFields(logrus.Fields{"port": name, "baud": s.cfg.BaudRate}).Info("port opened")
	return nil
}

// release closes the held port, if any. Callers hold s.mu.
func (s *Session) release() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		s.log.WithError(err).WithField("port", s.port.Name()).Warn("close of replaced port failed")
	}
	s.port = nil
}

// Read returns up to ReadBuffer bytes decoded as UTF-8. Invalid sequences
// become U+FFFD. An expired timeout yields an empty string.
func (s *Session) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return "", ErrNoPortOpen
	}
	buf := make([]byte, s.cfg.ReadBuffer)
	n, err := s.port.Read(buf)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	text, err := unicode.UTF8.NewDecoder().Bytes(buf[:n])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return string(text), nil
}

// Write sends every byte of data or fails.
func (s *Session) Write(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNoPortOpen
	}
	buf := []byte(data)
	for len(buf) > 0 {
		n, err := s.port.Write(buf)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: short write", ErrWrite)
		}
		buf = buf[n:]
	}
	return nil
}

// Close releases the port. Closing a closed session is an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNoPortOpen
	}
	name := s.port.Name()
	err := s.port.Close()
	s.port = nil
	if err != nil {
		s.log.WithError(err).WithField("port", name).Warn("port close reported an error")
	}
	s.log.WithField("port", name).Info("port closed")
	return nil
}

// Status returns the name of the open port, or "" when closed.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ""
	}
	return s.port.Name()
}
