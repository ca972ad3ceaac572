// Package gui hosts the desktop window. The window itself needs cgo and is
// only built with the webview tag; the request dispatcher is plain Go.
package gui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/events"
	"github.com/allbin/go-serial-ide/internal/runner"
)

// ErrNotBuilt is returned by NewWindow when the binary lacks the webview tag.
var ErrNotBuilt = errors.New("gui: built without webview support (rebuild with -tags webview)")

type rpcReq struct {
	Type string `json:"type"`
	// ID marks a request whose reply may be delivered later through the
	// responder instead of as the return value.
	ID string `json:"id,omitempty"`

	Port       string `json:"port,omitempty"`
	Data       string `json:"data,omitempty"`
	Path       string `json:"path,omitempty"`
	Content    string `json:"content,omitempty"`
	FilePath   string `json:"filePath,omitempty"`
	ElfPath    string `json:"elfPath,omitempty"`
	ProjectDir string `json:"projectDir,omitempty"`
}

type rpcResp map[string]any

// portBound commands can wait up to the read timeout on the session lock,
// so with a responder they run off the UI thread.
var portBound = map[string]bool{
	"open_serial_port":  true,
	"read_serial_port":  true,
	"write_serial_port": true,
	"close_serial_port": true,
	"serial_status":     true,
	"get_board_info":    true,
}

func ok(extra rpcResp) string {
	if extra == nil {
		extra = rpcResp{}
	}
	extra["ok"] = true
	b, _ := json.Marshal(extra)
	return string(b)
}

func fail(err error, extra rpcResp) string {
	if extra == nil {
		extra = rpcResp{}
	}
	extra["ok"] = false
	extra["error"] = err.Error()
	extra["kind"] = commands.KindOf(err).String()
	b, _ := json.Marshal(extra)
	return string(b)
}

// Dispatcher turns JSON requests from the page into Service calls.
// Build and flash run in the background; their output and final status
// arrive as events.
type Dispatcher struct {
	svc     *commands.Service
	emitter events.Emitter
	ctx     context.Context
	async   func(func())
	respond func(id, reply string)
	log     logrus.FieldLogger
}

// NewDispatcher constructs a Dispatcher. Background work stops being
// started once ctx is done.
func NewDispatcher(ctx context.Context, svc *commands.Service, emitter events.Emitter, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Dispatcher{
		svc:     svc,
		emitter: emitter,
		ctx:     ctx,
		async:   func(f func()) { go f() },
		log:     log.WithField("component", "gui"),
	}
}

// SetResponder installs the callback that delivers deferred replies.
// Without one every request is answered synchronously.
func (d *Dispatcher) SetResponder(respond func(id, reply string)) {
	d.respond = respond
}

// Handle decodes payload, runs the command and encodes the reply. A
// port-bound request carrying an id is answered with {"pending": true}
// and its real reply goes to the responder.
func (d *Dispatcher) Handle(payload string) string {
	var req rpcReq
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return fail(fmt.Errorf("bad request: %w", err), nil)
	}
	d.log.WithFields(logrus.Fields{"type": req.Type, "id": req.ID}).Debug("rpc")

	if req.ID != "" && d.respond != nil && portBound[req.Type] {
		d.async(func() { d.respond(req.ID, d.dispatch(req)) })
		return ok(rpcResp{"pending": true, "id": req.ID})
	}
	return d.dispatch(req)
}

func (d *Dispatcher) dispatch(req rpcReq) string {
	switch req.Type {
	case "list_serial_ports":
		return ok(rpcResp{"ports": d.svc.ListSerialPorts()})

	case "open_serial_port":
		if err := d.svc.OpenSerialPort(req.Port); err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"port": req.Port})

	case "read_serial_port":
		text, err := d.svc.ReadSerialPort()
		if err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"data": text})

	case "write_serial_port":
		if err := d.svc.WriteSerialPort(req.Data); err != nil {
			return fail(err, nil)
		}
		return ok(nil)

	case "close_serial_port":
		if err := d.svc.CloseSerialPort(); err != nil {
			return fail(err, nil)
		}
		return ok(nil)

	case "serial_status":
		return ok(rpcResp{"port": d.svc.SerialStatus()})

	case "get_board_info":
		info, err := d.svc.GetBoardInfo()
		if err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"text": info})

	case "build_project":
		if err := d.svc.CheckBuild(req.FilePath); err != nil {
			return fail(err, nil)
		}
		d.background(events.TopicBuildOutput, func() error {
			return d.svc.BuildProject(d.ctx, req.FilePath)
		})
		return ok(rpcResp{"started": true})

	case "flash_to_controller":
		if err := d.svc.CheckFlash(req.Port, req.ElfPath); err != nil {
			return fail(err, nil)
		}
		d.background(events.TopicFlashOutput, func() error {
			_, err := d.svc.FlashToController(d.ctx, req.Port, req.ElfPath)
			return err
		})
		return ok(rpcResp{"started": true})

	case "run_project":
		msg, err := d.svc.RunProject(req.FilePath, req.Port)
		if err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"text": msg})

	case "open_cmd_window_and_build":
		if err := d.svc.OpenCmdWindowAndBuild(req.ProjectDir); err != nil {
			return fail(err, nil)
		}
		return ok(nil)

	case "open_file_explorer":
		if err := d.svc.OpenFileExplorer(req.Path); err != nil {
			return fail(err, nil)
		}
		return ok(nil)

	case "open_file":
		content, err := d.svc.OpenFile(req.Path)
		if err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"content": content})

	case "save_file":
		if err := d.svc.SaveFile(req.Path, req.Content); err != nil {
			return fail(err, nil)
		}
		return ok(nil)

	case "create_new_file":
		path, err := d.svc.CreateNewFile()
		if err != nil {
			return fail(err, nil)
		}
		return ok(rpcResp{"path": path})

	case "get_about_us":
		return ok(rpcResp{"text": d.svc.AboutUs()})

	case "get_github_url":
		return ok(rpcResp{"url": d.svc.GitHubURL()})

	case "exit":
		d.async(d.svc.Exit)
		return ok(nil)

	default:
		return fail(fmt.Errorf("unknown rpc %q", req.Type), rpcResp{"type": req.Type})
	}
}

// background runs f off the UI thread and reports its failure on topic.
func (d *Dispatcher) background(topic events.Topic, f func() error) {
	d.async(func() {
		if err := d.ctx.Err(); err != nil {
			return
		}
		if err := f(); err != nil {
			if emitErr := d.emitter.Emit(topic, runner.ErrorPrefix+err.Error()); emitErr != nil {
				d.log.WithError(emitErr).Warn("emit failed")
			}
		}
	})
}
