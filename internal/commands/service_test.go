package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serial "github.com/allbin/go-serial-ide"
	"github.com/allbin/go-serial-ide/internal/config"
	"github.com/allbin/go-serial-ide/internal/events"
	"github.com/allbin/go-serial-ide/internal/inventory"
	"github.com/allbin/go-serial-ide/internal/logging"
	"github.com/allbin/go-serial-ide/internal/runner"
	"github.com/allbin/go-serial-ide/internal/session"
)

type loopPort struct {
	name   string
	buf    []byte
	closed bool
}

func (p *loopPort) Name() string       { return p.name }
func (p *loopPort) Close() error       { p.closed = true; return nil }
func (p *loopPort) FlushInput() error  { return nil }
func (p *loopPort) FlushOutput() error { return nil }

func (p *loopPort) Read(b []byte) (int, error) {
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	return len(b), nil
}

type fakeProcess struct {
	stdout, stderr string
	code           int
}

func (p fakeProcess) Stdout() io.Reader  { return strings.NewReader(p.stdout) }
func (p fakeProcess) Stderr() io.Reader  { return strings.NewReader(p.stderr) }
func (p fakeProcess) Wait() (int, error) { return p.code, nil }

type fakeSpawner struct {
	mu       sync.Mutex
	proc     fakeProcess
	err      error
	commands []runner.Command
}

func (f *fakeSpawner) Spawn(_ context.Context, cmd runner.Command) (runner.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return nil, f.err
	}
	return f.proc, nil
}

type fakeLauncher struct {
	terminals [][2]string
	explored  []string
	err       error
}

func (l *fakeLauncher) OpenTerminal(dir, command string) error {
	l.terminals = append(l.terminals, [2]string{dir, command})
	return l.err
}

func (l *fakeLauncher) OpenExplorer(path string) error {
	l.explored = append(l.explored, path)
	return l.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Emit(topic events.Topic, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events.Event{Topic: topic, Payload: payload})
	return r.err
}

func (r *recorder) payloads(topic events.Topic) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Topic == topic {
			out = append(out, e.Payload)
		}
	}
	return out
}

type fixture struct {
	svc      *Service
	ports    []string
	spawner  *fakeSpawner
	launcher *fakeLauncher
	emitted  *recorder
	quit     int
	dir      string
}

func newFixture(t *testing.T, ports ...string) *fixture {
	t.Helper()
	f := &fixture{
		ports:    ports,
		spawner:  &fakeSpawner{},
		launcher: &fakeLauncher{},
		emitted:  &recorder{},
		dir:      t.TempDir(),
	}
	log := logging.Discard()
	enum := inventory.EnumeratorFunc(func() ([]string, error) { return f.ports, nil })
	ids := inventory.HardwareIDProviderFunc(func(string) ([]string, error) {
		return []string{`USB\VID_2341&PID_0043`}, nil
	})
	inv := inventory.New(enum, ids, log)
	open := func(name string, _ ...serial.Option) (serial.Port, error) {
		return &loopPort{name: name}, nil
	}
	f.svc = NewService(config.Default(), Deps{
		Inventory: inv,
		Session:   session.New(inv, open, session.DefaultConfig(), log),
		Runner:    runner.New(f.spawner, log),
		Launcher:  f.launcher,
		Emitter:   f.emitted,
		Quit:      func() { f.quit++ },
		WorkDir:   f.dir,
	}, log)
	return f
}

// project creates <dir>/blink/Cargo.toml and <dir>/blink/src/main.rs and
// returns the source path.
func (f *fixture) project(t *testing.T, withManifest bool) string {
	t.Helper()
	src := filepath.Join(f.dir, "blink", "src", "main.rs")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("fn main() {}\n"), 0o644))
	if withManifest {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, "blink", "Cargo.toml"), []byte("[package]\n"), 0o644))
	}
	return src
}

func TestSerialCommands(t *testing.T) {
	f := newFixture(t, "/dev/ttyACM0")

	assert.Equal(t, []string{"/dev/ttyACM0"}, f.svc.ListSerialPorts())

	_, err := f.svc.ReadSerialPort()
	assert.Equal(t, KindWrongState, KindOf(err))
	assert.Equal(t, "No port is open", err.Error())

	err = f.svc.OpenSerialPort("/dev/ttyUSB7")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Port not found", err.Error())

	require.NoError(t, f.svc.OpenSerialPort("/dev/ttyACM0"))
	assert.Equal(t, "/dev/ttyACM0", f.svc.SerialStatus())
	require.NoError(t, f.svc.WriteSerialPort("hi"))
	text, err := f.svc.ReadSerialPort()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	require.NoError(t, f.svc.CloseSerialPort())
	err = f.svc.CloseSerialPort()
	assert.Equal(t, KindWrongState, KindOf(err))

	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "close_serial_port", cmdErr.Op)
	assert.ErrorIs(t, err, session.ErrNoPortOpen)
}

func TestListSerialPortsEmpty(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{inventory.NoPortsSentinel}, f.svc.ListSerialPorts())
}

func TestGetBoardInfo(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetBoardInfo()
	assert.Equal(t, KindEnumerationEmpty, KindOf(err))

	f.ports = []string{"/dev/ttyACM0"}
	info, err := f.svc.GetBoardInfo()
	require.NoError(t, err)
	assert.Contains(t, info, "VID: 2341\nPID: 0043\n")
}

func TestBuildProjectWithoutManifestDoesNotSpawn(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, false)

	err := f.svc.BuildProject(context.Background(), src)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrManifestNotFound)
	assert.Empty(t, f.spawner.commands)
}

func TestBuildProjectStreamsOutput(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, true)
	f.spawner.proc = fakeProcess{stdout: "Compiling blink\nFinished\n", stderr: "warning: unused\n", code: 101}

	require.NoError(t, f.svc.BuildProject(context.Background(), src), "exit code is reported, not failed")

	require.Len(t, f.spawner.commands, 1)
	cmd := f.spawner.commands[0]
	assert.Equal(t, "cargo", cmd.Name)
	assert.Equal(t, []string{"build"}, cmd.Args)
	assert.Equal(t, filepath.Join(f.dir, "blink"), cmd.Dir)

	lines := f.emitted.payloads(events.TopicBuildOutput)
	assert.Len(t, lines, 4)
	assert.Contains(t, lines, "Compiling blink")
	assert.Contains(t, lines, "ERROR: warning: unused")
	assert.Equal(t, "Build finished with exit code 101", lines[len(lines)-1])
}

func TestBuildProjectSpawnFailure(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, true)
	f.spawner.err = errors.New("executable file not found in $PATH")

	err := f.svc.BuildProject(context.Background(), src)
	assert.Equal(t, KindOSResource, KindOf(err))
	assert.ErrorIs(t, err, runner.ErrSpawn)
}

func TestBuildProjectEmitFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, true)
	f.spawner.proc = fakeProcess{stdout: "a\nb\n"}
	f.emitted.err = errors.New("window closed")

	require.NoError(t, f.svc.BuildProject(context.Background(), src))
	assert.Len(t, f.emitted.payloads(events.TopicBuildOutput), 3)
}

func TestFlashToController(t *testing.T) {
	f := newFixture(t)
	elf := filepath.Join(f.dir, "blink.elf")

	_, err := f.svc.FlashToController(context.Background(), "/dev/ttyACM0", elf)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, f.spawner.commands, "no spawn without artifact")

	require.NoError(t, os.WriteFile(elf, []byte{0x7f, 'E', 'L', 'F'}, 0o644))
	f.spawner.proc = fakeProcess{stdout: "Programming flash\n"}

	result, err := f.svc.FlashToController(context.Background(), "/dev/ttyACM0", elf)
	require.NoError(t, err)
	assert.Equal(t, "Flashing completed with exit code 0", result)

	require.Len(t, f.spawner.commands, 1)
	assert.Equal(t, "ravedude", f.spawner.commands[0].Name)
	assert.Equal(t, []string{"uno", "-P", "/dev/ttyACM0", "-cb", "57600", elf}, f.spawner.commands[0].Args)
	assert.Equal(t, []string{"Programming flash", result}, f.emitted.payloads(events.TopicFlashOutput))
	assert.Empty(t, f.emitted.payloads(events.TopicBuildOutput))
}

func TestFlashRequiresPort(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FlashToController(context.Background(), "", "x.elf")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestRunProject(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, true)

	msg, err := f.svc.RunProject(src, "")
	require.NoError(t, err)
	assert.Contains(t, msg, "cargo run")

	_, err = f.svc.RunProject(src, "/dev/ttyACM0")
	require.NoError(t, err)

	root := filepath.Join(f.dir, "blink")
	assert.Equal(t, [][2]string{
		{root, "cargo run"},
		{root, "cargo run --port /dev/ttyACM0"},
	}, f.launcher.terminals)
}

func TestRunProjectRejectsShellMetacharacters(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, true)

	for _, port := range []string{
		"/dev/ttyACM0; touch /tmp/owned",
		"/dev/ttyACM0 && reboot",
		"$(id)",
		"COM3\" & calc",
		"/dev/tty ACM0",
	} {
		_, err := f.svc.RunProject(src, port)
		assert.Equal(t, KindInvalidArgument, KindOf(err), port)
	}
	assert.Empty(t, f.launcher.terminals)

	for _, port := range []string{"/dev/cu.usbmodem1101", "COM3", `\\.\COM10`, "/dev/serial/by-id/usb-Arduino_Uno-if00"} {
		_, err := f.svc.RunProject(src, port)
		assert.NoError(t, err, port)
	}
	assert.Len(t, f.launcher.terminals, 4)
}

func TestCheckBuildAndFlash(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, false)

	err := f.svc.CheckBuild(src)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Manifest not found"), err.Error())
	assert.Equal(t, KindInvalidArgument, KindOf(f.svc.CheckBuild("")))

	f.project(t, true)
	assert.NoError(t, f.svc.CheckBuild(src))

	elf := filepath.Join(f.dir, "blink.elf")
	assert.Equal(t, KindNotFound, KindOf(f.svc.CheckFlash("/dev/ttyACM0", elf)))
	assert.Equal(t, KindInvalidArgument, KindOf(f.svc.CheckFlash("/dev/ttyACM0", "")))
	require.NoError(t, os.WriteFile(elf, []byte{0x7f, 'E', 'L', 'F'}, 0o644))
	assert.NoError(t, f.svc.CheckFlash("/dev/ttyACM0", elf))
	assert.Empty(t, f.spawner.commands)
}

func TestErrorMessageIsCapitalised(t *testing.T) {
	assert.Equal(t, "no port is open", session.ErrNoPortOpen.Error())

	err := fail("close_serial_port", session.ErrNoPortOpen)
	assert.Equal(t, "No port is open", err.Error())
	assert.ErrorIs(t, err, session.ErrNoPortOpen)
	assert.Equal(t, "", userMessage(errors.New("")))
}

func TestRunProjectWithoutManifest(t *testing.T) {
	f := newFixture(t)
	src := f.project(t, false)

	_, err := f.svc.RunProject(src, "")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, f.launcher.terminals)
}

func TestOpenCmdWindowAndBuild(t *testing.T) {
	f := newFixture(t)
	f.project(t, true)
	root := filepath.Join(f.dir, "blink")

	require.NoError(t, f.svc.OpenCmdWindowAndBuild(root))
	assert.Equal(t, [][2]string{{root, "cargo build"}}, f.launcher.terminals)

	err := f.svc.OpenCmdWindowAndBuild(f.dir)
	assert.Equal(t, KindNotFound, KindOf(err))

	f.launcher.err = runner.ErrLaunch
	err = f.svc.OpenCmdWindowAndBuild(root)
	assert.Equal(t, KindOSResource, KindOf(err))
}

func TestOpenFileExplorer(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.OpenFileExplorer(f.dir))
	assert.Equal(t, []string{f.dir}, f.launcher.explored)

	err := f.svc.OpenFileExplorer(filepath.Join(f.dir, "missing"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestFileCommands(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "main.rs")

	require.NoError(t, f.svc.SaveFile(path, "fn main() {}"))
	content, err := f.svc.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", content)

	_, err = f.svc.OpenFile(filepath.Join(f.dir, "nope.rs"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to read file: "))
	assert.Equal(t, KindNotFound, KindOf(err))

	err = f.svc.SaveFile(filepath.Join(f.dir, "no", "such", "dir.rs"), "x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to write file: "))

	created, err := f.svc.CreateNewFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "new_file.rs"), created)
	info, err := os.Stat(created)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestExitClosesPort(t *testing.T) {
	f := newFixture(t, "/dev/ttyACM0")
	require.NoError(t, f.svc.OpenSerialPort("/dev/ttyACM0"))

	f.svc.Exit()
	assert.Equal(t, 1, f.quit)
	assert.Empty(t, f.svc.SerialStatus())
}

func TestStaticStrings(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, config.Default().About.Text, f.svc.AboutUs())
	assert.Equal(t, "https://github.com/allbin/go-serial-ide", f.svc.GitHubURL())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("other"), KindUnknown},
		{session.ErrPortNotFound, KindNotFound},
		{session.ErrNoPortOpen, KindWrongState},
		{inventory.ErrNoPorts, KindEnumerationEmpty},
		{runner.ErrWait, KindOSResource},
		{os.ErrPermission, KindOSResource},
		{&Error{Kind: KindNotFound, Message: "x"}, KindNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "wrong_state", KindWrongState.String())
}
