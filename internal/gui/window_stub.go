//go:build !webview

package gui

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/allbin/go-serial-ide/internal/commands"
	"github.com/allbin/go-serial-ide/internal/events"
)

// Window is unavailable without the webview build tag.
type Window struct{}

// NewWindow reports ErrNotBuilt.
func NewWindow(context.Context, *commands.Service, *events.Bus, bool, logrus.FieldLogger) (*Window, error) {
	return nil, ErrNotBuilt
}

func (w *Window) Run() {}
func (w *Window) Close() {}
func (w *Window) Terminate() {}
