// Package x11 implements the platform side of the daemon: the window-list
// query, live window handles, input monitoring and display geometry, all
// over a single X connection.
package x11

import (
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/rs/zerolog"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	primaryOnce   sync.Once
	primaryHeight int
}

// NewConnection establishes a connection to the X11 server and initializes
// required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for modifier grabs)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops the event loop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// PrimaryHeight returns the primary display's height in pixels. Window
// geometry is reported relative to the primary display's origin, so this
// is the height every coordinate-space conversion uses. Resolved once via
// RandR with the root screen height as fallback.
func (c *Connection) PrimaryHeight() int {
	c.primaryOnce.Do(func() {
		c.primaryHeight = int(c.XUtil.Screen().HeightInPixels)
		if h, ok := c.randrPrimaryHeight(); ok {
			c.primaryHeight = h
		}
	})
	return c.primaryHeight
}

func (c *Connection) randrPrimaryHeight() (int, bool) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return 0, false
	}

	primary, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply()
	if err != nil || primary.Output == 0 {
		return 0, false
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, false
	}

	outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), primary.Output, resources.ConfigTimestamp).Reply()
	if err != nil || outputInfo.Crtc == 0 {
		return 0, false
	}

	crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), outputInfo.Crtc, resources.ConfigTimestamp).Reply()
	if err != nil || crtcInfo.Height == 0 {
		return 0, false
	}

	return int(crtcInfo.Height), true
}

// Permission adapts connection liveness to the authorization checks the
// drag controller performs. X11 has no consent prompt: holding a working
// display connection is the authorization.
type Permission struct {
	conn *Connection
	log  zerolog.Logger
}

// NewPermission creates a permission checker over the connection.
func NewPermission(conn *Connection, log zerolog.Logger) *Permission {
	return &Permission{conn: conn, log: log}
}

// Authorized reports whether the display connection still answers.
func (p *Permission) Authorized() bool {
	_, err := xproto.GetGeometry(p.conn.XUtil.Conn(), xproto.Drawable(p.conn.Root)).Reply()
	return err == nil
}

// Request logs guidance; there is no interactive consent flow to trigger.
func (p *Permission) Request() {
	p.log.Warn().Msg("display connection unavailable; check DISPLAY and X server access control (xhost)")
}
