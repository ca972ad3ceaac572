//go:build webview

package gui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	webview "github.com/webview/webview_go"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/events"
)

//go:embed assets/index.html
var assets embed.FS

// Window is the webview front end.
type Window struct {
	wv     webview.WebView
	bus    *events.Bus
	cancel context.CancelFunc
	log    logrus.FieldLogger
}

// NewWindow creates the webview, binds the rpc entrypoint and starts
// forwarding bus events to the page.
func NewWindow(ctx context.Context, svc *commands.Service, bus *events.Bus, debug bool, log logrus.FieldLogger) (*Window, error) {
	if svc == nil || bus == nil {
		return nil, fmt.Errorf("gui: service and event bus are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	w := &Window{
		wv:     webview.New(debug),
		bus:    bus,
		cancel: cancel,
		log:    log.WithField("component", "window"),
	}
	if w.wv == nil {
		cancel()
		return nil, fmt.Errorf("gui: failed to create webview")
	}

	w.wv.SetTitle("idec")
	w.wv.SetSize(1200, 800, webview.HintNone)

	dispatcher := NewDispatcher(ctx, svc, bus, log)
	dispatcher.SetResponder(w.resolve)
	// Single entrypoint used by the page: window.rpc(JSON.stringify(req)) -> JSON string
	if err := w.wv.Bind("rpc", dispatcher.Handle); err != nil {
		w.Close()
		return nil, fmt.Errorf("gui: bind rpc: %w", err)
	}

	html, err := assets.ReadFile("assets/index.html")
	if err != nil {
		w.Close()
		return nil, err
	}
	w.wv.SetHtml(string(html))

	go w.pumpEvents(ctx)
	return w, nil
}

// pumpEvents pushes every bus event into the page as a DOM event named
// after its topic.
func (w *Window) pumpEvents(ctx context.Context) {
	ch, unsubscribe := w.bus.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			w.push(ev)
		}
	}
}

func (w *Window) push(ev events.Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		w.log.WithError(err).Warn("encode event")
		return
	}
	js := fmt.Sprintf("window.dispatchEvent(new CustomEvent(%q, {detail: %s}));", string(ev.Topic), payload)
	w.wv.Dispatch(func() {
		w.wv.Eval(js)
	})
}

// resolve settles the page promise waiting on a deferred rpc reply.
func (w *Window) resolve(id, reply string) {
	quoted, err := json.Marshal(id)
	if err != nil {
		w.log.WithError(err).Warn("encode rpc id")
		return
	}
	js := fmt.Sprintf("window.__rpcResolve(%s, %s);", quoted, reply)
	w.wv.Dispatch(func() {
		w.wv.Eval(js)
	})
}

// Run blocks on the webview main loop.
func (w *Window) Run() { w.wv.Run() }

// Close stops the event pump and destroys the webview.
func (w *Window) Close() {
	w.cancel()
	if w.wv != nil {
		w.wv.Destroy()
	}
}

// Terminate ends the main loop from any goroutine.
func (w *Window) Terminate() {
	w.wv.Dispatch(w.wv.Terminate)
}
