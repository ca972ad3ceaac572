package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serial "github.com/allbin/go-serial-ide"
	"github.com/allbin/go-serial-ide/internal/logging"
)

type fakePort struct {
	mu       sync.Mutex
	name     string
	closed   bool
	incoming []byte
	written  []byte
	maxWrite int
	readErr  error
	writeErr error
}

func (p *fakePort) Name() string { return p.name }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return serial.ErrPortClosed
	}
	p.closed = true
	return nil
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(buf, p.incoming)
	p.incoming = p.incoming[n:]
	return n, nil
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	n := len(data)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}
	p.written = append(p.written, data[:n]...)
	return n, nil
}

func (p *fakePort) FlushInput() error  { return nil }
func (p *fakePort) FlushOutput() error { return nil }

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeSystem struct {
	ports   []string
	enumErr error
	openErr error
	opened  []*fakePort
}

func (f *fakeSystem) Ports() ([]string, error) { return f.ports, f.enumErr }

func (f *fakeSystem) Open(name string, opts ...serial.Option) (serial.Port, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	cfg := serial.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	p := &fakePort{name: name}
	f.opened = append(f.opened, p)
	return p, nil
}

func newTestSession(sys *fakeSystem) *Session {
	return New(sys, sys.Open, DefaultConfig(), logging.Discard())
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s := newTestSession(&fakeSystem{})

	_, err := s.Read()
	assert.ErrorIs(t, err, ErrNoPortOpen)
	assert.ErrorIs(t, s.Write("x"), ErrNoPortOpen)
	assert.ErrorIs(t, s.Close(), ErrNoPortOpen)
	assert.Empty(t, s.Status())
}

func TestCloseIsNotIdempotent(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)

	require.NoError(t, s.Open("/dev/ttyACM0"))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrNoPortOpen)
	assert.True(t, sys.opened[0].isClosed())
}

func TestOpenUnknownPort(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)

	err := s.Open("/dev/ttyUSB9")
	assert.ErrorIs(t, err, ErrPortNotFound)
	assert.Equal(t, "port not found", err.Error())
	assert.Empty(t, sys.opened)
}

func TestOpenEnumerationFailure(t *testing.T) {
	sys := &fakeSystem{enumErr: errors.New("sysfs unavailable")}
	s := newTestSession(sys)

	err := s.Open("/dev/ttyACM0")
	assert.ErrorIs(t, err, ErrEnumeration)
}

func TestOpenFailureKeepsPreviousPort(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0", "/dev/ttyUSB0"}}
	s := newTestSession(sys)
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.openErr = serial.ErrPermissionDenied
	err := s.Open("/dev/ttyUSB0")
	assert.ErrorIs(t, err, ErrPortOpen)
	assert.ErrorIs(t, err, serial.ErrPermissionDenied)
	assert.Equal(t, "failed to open port: permission denied accessing serial device", err.Error())

	assert.Equal(t, "/dev/ttyACM0", s.Status())
	assert.False(t, sys.opened[0].isClosed())
}

func TestOpenReplacesHandle(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0", "/dev/ttyUSB0"}}
	s := newTestSession(sys)

	require.NoError(t, s.Open("/dev/ttyACM0"))
	require.NoError(t, s.Open("/dev/ttyUSB0"))

	require.Len(t, sys.opened, 2)
	assert.True(t, sys.opened[0].isClosed(), "first handle must be released")
	assert.False(t, sys.opened[1].isClosed())
	assert.Equal(t, "/dev/ttyUSB0", s.Status())

	require.NoError(t, s.Write("ping"))
	assert.Equal(t, "ping", string(sys.opened[1].written))
	assert.Empty(t, sys.opened[0].written)
}

func TestOpenSamePortTwice(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)

	require.NoError(t, s.Open("/dev/ttyACM0"))
	require.NoError(t, s.Open("/dev/ttyACM0"))

	require.Len(t, sys.opened, 2)
	assert.True(t, sys.opened[0].isClosed())
	assert.Equal(t, "/dev/ttyACM0", s.Status())
}

func TestReadDecodesLossily(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.opened[0].incoming = []byte{'o', 'k', 0xff, '!'}
	text, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "ok�!", text)

	text, err = s.Read()
	require.NoError(t, err)
	assert.Empty(t, text, "timeout without data reads as empty text")
}

func TestReadIsBoundedByBuffer(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := New(sys, sys.Open, Config{BaudRate: 9600, ReadTimeout: time.Second, ReadBuffer: 4}, logging.Discard())
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.opened[0].incoming = []byte("abcdefgh")
	text, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "abcd", text)
}

func TestReadError(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.opened[0].readErr = errors.New("device unplugged")
	_, err := s.Read()
	assert.ErrorIs(t, err, ErrRead)
}

func TestWriteCompletesShortWrites(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.opened[0].maxWrite = 3
	require.NoError(t, s.Write("hello world"))
	assert.Equal(t, "hello world", string(sys.opened[0].written))
}

func TestWriteError(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0"}}
	s := newTestSession(sys)
	require.NoError(t, s.Open("/dev/ttyACM0"))

	sys.opened[0].writeErr = errors.New("I/O error")
	err := s.Write("x")
	assert.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, "failed to write to port: I/O error", err.Error())
}

func TestConcurrentAccess(t *testing.T) {
	sys := &fakeSystem{ports: []string{"/dev/ttyACM0", "/dev/ttyUSB0"}}
	s := newTestSession(sys)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.Open("/dev/ttyACM0")
			} else {
				_ = s.Open("/dev/ttyUSB0")
			}
			_ = s.Write("x")
			_, _ = s.Read()
			_ = s.Status()
		}(i)
	}
	wg.Wait()

	live := 0
	for _, p := range sys.opened {
		if !p.isClosed() {
			live++
		}
	}
	assert.Equal(t, 1, live, "exactly one handle stays open")
}

func TestPortOptions(t *testing.T) {
	cfg := Config{BaudRate: 115200, ReadTimeout: 1234 * time.Millisecond, ReadBuffer: 16}
	port := serial.DefaultConfig()
	for _, opt := range cfg.portOptions() {
		require.NoError(t, opt(&port))
	}
	assert.Equal(t, 115200, port.BaudRate)
	assert.Equal(t, 1200*time.Millisecond, port.ReadTimeout)

	cfg.BaudRate = 12345
	port = serial.DefaultConfig()
	assert.ErrorIs(t, cfg.portOptions()[0](&port), serial.ErrInvalidBaudRate)
}
