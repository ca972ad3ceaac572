// Package commands is the set of operations the frontends invoke. Each
// method validates its arguments, delegates to the inventory, session or
// runner and returns failures as *Error.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/allbin/go-serial-ide/internal/config"
	"github.com/allbin/go-serial-ide/internal/events"
	"github.com/allbin/go-serial-ide/internal/inventory"
	"github.com/allbin/go-serial-ide/internal/runner"
	"github.com/allbin/go-serial-ide/internal/session"
)

// Launcher opens detached programs.
type Launcher interface {
	OpenTerminal(dir, command string) error
	OpenExplorer(path string) error
}

// Deps are the collaborators of a Service. Nil fields get system defaults.
type Deps struct {
	Inventory *inventory.Inventory
	Session   *session.Session
	Runner    *runner.Runner
	Launcher  Launcher
	Emitter   events.Emitter
	// Quit is called by Exit.
	Quit func()
	// WorkDir is where CreateNewFile writes. Empty means the process
	// working directory.
	WorkDir string
}

// Service implements every frontend command.
type Service struct {
	cfg       config.Config
	inventory *inventory.Inventory
	session   *session.Session
	runner    *runner.Runner
	launcher  Launcher
	emitter   events.Emitter
	quit      func()
	workDir   string
	log       logrus.FieldLogger
}

// NewService wires a Service from cfg and deps.
func NewService(cfg config.Config, deps Deps, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if deps.Inventory == nil {
		deps.Inventory = inventory.New(nil, nil, log)
	}
	if deps.Session == nil {
		deps.Session = session.New(deps.Inventory, nil, session.Config{
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.Serial.ReadTimeout,
			ReadBuffer:  cfg.Serial.ReadBuffer,
		}, log)
	}
	if deps.Runner == nil {
		deps.Runner = runner.New(nil, log)
	}
	if deps.Launcher == nil {
		deps.Launcher = runner.NewLauncher(cfg.Terminal.Binary, cfg.Explorer.Binary, log)
	}
	if deps.Emitter == nil {
		deps.Emitter = events.Discard
	}
	if deps.Quit == nil {
		deps.Quit = func() { os.Exit(0) }
	}
	return &Service{
		cfg:       cfg,
		inventory: deps.Inventory,
		session:   deps.Session,
		runner:    deps.Runner,
		launcher:  deps.Launcher,
		emitter:   deps.Emitter,
		quit:      deps.Quit,
		workDir:   deps.WorkDir,
		log:       log.WithField("component", "commands"),
	}
}

// ListSerialPorts never fails; see inventory.NoPortsSentinel.
func (s *Service) ListSerialPorts() []string {
	return s.inventory.ListPorts()
}

// OpenSerialPort opens port, replacing any open one.
func (s *Service) OpenSerialPort(port string) error {
	return fail("open_serial_port", s.session.Open(port))
}

// ReadSerialPort returns whatever arrived within the read timeout.
func (s *Service) ReadSerialPort() (string, error) {
	text, err := s.session.Read()
	return text, fail("read_serial_port", err)
}

// WriteSerialPort sends data to the open port.
func (s *Service) WriteSerialPort(data string) error {
	return fail("write_serial_port", s.session.Write(data))
}

// CloseSerialPort closes the open port.
func (s *Service) CloseSerialPort() error {
	return fail("close_serial_port", s.session.Close())
}

// SerialStatus returns the open port name, or "".
func (s *Service) SerialStatus() string {
	return s.session.Status()
}

// GetBoardInfo describes the first enumerated board.
func (s *Service) GetBoardInfo() (string, error) {
	info, err := s.inventory.BoardInfo()
	return info, fail("get_board_info", err)
}

// projectRoot returns the parent of the source file's directory, so
// <root>/src/main.rs resolves to <root>.
func projectRoot(filePath string) string {
	return filepath.Dir(filepath.Dir(filepath.Clean(filePath)))
}

// requireManifest checks that root contains the toolchain manifest.
func (s *Service) requireManifest(root string) error {
	manifest := filepath.Join(root, s.cfg.Toolchain.Manifest)
	if _, err := os.Stat(manifest); err != nil {
		return fmt.Errorf("%w: %s not found in %s", ErrManifestNotFound, s.cfg.Toolchain.Manifest, root)
	}
	return nil
}

// forward returns a listener that emits each line on topic. Emit failures
// are logged so the process keeps running.
func (s *Service) forward(topic events.Topic) runner.Listener {
	return func(line runner.Line) error {
		if err := s.emitter.Emit(topic, line.String()); err != nil {
			s.log.WithError(err).WithField("topic", topic).Warn("emit failed")
		}
		return nil
	}
}

// CheckBuild reports the error BuildProject would fail with before
// spawning.
func (s *Service) CheckBuild(filePath string) error {
	_, err := s.buildRoot(filePath)
	return fail("build_project", err)
}

func (s *Service) buildRoot(filePath string) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", fmt.Errorf("%w: file path is required", ErrInvalidArgument)
	}
	root := projectRoot(filePath)
	if err := s.requireManifest(root); err != nil {
		return "", err
	}
	return root, nil
}

// BuildProject runs "<toolchain> build" in the project containing
// filePath and streams output on events.TopicBuildOutput. A failed build
// is reported through the stream, not as an error.
func (s *Service) BuildProject(ctx context.Context, filePath string) error {
	const op = "build_project"
	root, err := s.buildRoot(filePath)
	if err != nil {
		return fail(op, err)
	}

	cmd := runner.Command{Name: s.cfg.Toolchain.Binary, Args: []string{"build"}, Dir: root}
	emit := s.forward(events.TopicBuildOutput)
	outcome, err := s.runner.RunStreaming(ctx, cmd, emit)
	if err != nil {
		return fail(op, err)
	}
	_ = emit(runner.Line{Text: "Build finished with exit code " + strconv.Itoa(outcome.ExitCode)})
	s.log.WithFields(logrus.Fields{"root": root, "exit_code": outcome.ExitCode}).Info("build finished")
	return nil
}

// portNamePattern accepts device paths such as /dev/ttyACM0, COM3 and
// \\.\COM10. The name ends up in a shell command line, so shell and
// AppleScript metacharacters are rejected.
var portNamePattern = regexp.MustCompile(`^[A-Za-z0-9/\\._:-]+$`)

// RunProject opens a terminal running "<toolchain> run [--port <p>]" in
// the project containing filePath.
func (s *Service) RunProject(filePath, port string) (string, error) {
	const op = "run_project"
	root, err := s.buildRoot(filePath)
	if err != nil {
		return "", fail(op, err)
	}
	command := s.cfg.Toolchain.Binary + " run"
	if port != "" {
		if !portNamePattern.MatchString(port) {
			return "", fail(op, fmt.Errorf("%w: port name %q", ErrInvalidArgument, port))
		}
		command += " --port " + port
	}
	if err := s.launcher.OpenTerminal(root, command); err != nil {
		return "", fail(op, err)
	}
	return fmt.Sprintf("Running %q in %s", command, root), nil
}

// CheckFlash reports the error FlashToController would fail with before
// spawning.
func (s *Service) CheckFlash(port, elfPath string) error {
	return fail("flash_to_controller", checkFlash(port, elfPath))
}

func checkFlash(port, elfPath string) error {
	if strings.TrimSpace(port) == "" {
		return fmt.Errorf("%w: port is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(elfPath) == "" {
		return fmt.Errorf("%w: firmware path is required", ErrInvalidArgument)
	}
	if _, err := os.Stat(elfPath); err != nil {
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, elfPath)
	}
	return nil
}

// FlashToController runs the flash tool for elfPath against port and
// streams output on events.TopicFlashOutput.
func (s *Service) FlashToController(ctx context.Context, port, elfPath string) (string, error) {
	const op = "flash_to_controller"
	if err := checkFlash(port, elfPath); err != nil {
		return "", fail(op, err)
	}

	cmd := runner.Command{
		Name: s.cfg.Flash.Binary,
		Args: []string{s.cfg.Flash.Board, "-P", port, "-cb", strconv.Itoa(s.cfg.Flash.BaudRate), elfPath},
		Dir:  filepath.Dir(elfPath),
	}
	emit := s.forward(events.TopicFlashOutput)
	outcome, err := s.runner.RunStreaming(ctx, cmd, emit)
	if err != nil {
		return "", fail(op, err)
	}
	result := "Flashing completed with exit code " + strconv.Itoa(outcome.ExitCode)
	_ = emit(runner.Line{Text: result})
	s.log.WithFields(logrus.Fields{"port": port, "exit_code": outcome.ExitCode}).Info("flash finished")
	return result, nil
}

// OpenCmdWindowAndBuild opens a terminal in projectDir running the build.
func (s *Service) OpenCmdWindowAndBuild(projectDir string) error {
	const op = "open_cmd_window_and_build"
	if strings.TrimSpace(projectDir) == "" {
		return fail(op, fmt.Errorf("%w: project directory is required", ErrInvalidArgument))
	}
	if err := s.requireManifest(projectDir); err != nil {
		return fail(op, err)
	}
	return fail(op, s.launcher.OpenTerminal(projectDir, s.cfg.Toolchain.Binary+" build"))
}

// OpenFileExplorer shows path in the platform file manager.
func (s *Service) OpenFileExplorer(path string) error {
	const op = "open_file_explorer"
	if _, err := os.Stat(path); err != nil {
		return fail(op, fmt.Errorf("%w: %s", ErrPathNotFound, path))
	}
	return fail(op, s.launcher.OpenExplorer(path))
}

// OpenFile returns the content of path.
func (s *Service) OpenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fail("open_file", fmt.Errorf("failed to read file: %w", err))
	}
	return string(data), nil
}

// SaveFile replaces the content of path.
func (s *Service) SaveFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fail("save_file", fmt.Errorf("failed to write file: %w", err))
	}
	return nil
}

// CreateNewFile writes an empty file with the configured name and returns
// its path.
func (s *Service) CreateNewFile() (string, error) {
	path := s.cfg.Workspace.NewFile
	if s.workDir != "" {
		path = filepath.Join(s.workDir, path)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return "", fail("create_new_file", fmt.Errorf("failed to create file: %w", err))
	}
	return path, nil
}

// Exit closes any open port and invokes the quit hook.
func (s *Service) Exit() {
	if s.session.Status() != "" {
		_ = s.session.Close()
	}
	s.log.Info("exit requested")
	s.quit()
}

// AboutUs returns the about text.
func (s *Service) AboutUs() string {
	return s.cfg.About.Text
}

// GitHubURL returns the project URL.
func (s *Service) GitHubURL() string {
	return s.cfg.About.GitHubURL
}
