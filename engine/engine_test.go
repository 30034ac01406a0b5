package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/platform"
	"github.com/stretchr/testify/assert"
)

type recordingApp struct {
	resizes [][2]uint32
	keys    []core.KeyCode
	moves   int
	buttons int
}

func (a *recordingApp) Initialize(ctx context.Context, host Host) error { return nil }
func (a *recordingApp) Animate(delta float64)                           {}
func (a *recordingApp) Render() error                                   { return nil }
func (a *recordingApp) Resize(width, height uint32) {
	a.resizes = append(a.resizes, [2]uint32{width, height})
}
func (a *recordingApp) Key(key core.KeyCode, action core.Action)           { a.keys = append(a.keys, key) }
func (a *recordingApp) MouseButton(button core.Button, action core.Action) { a.buttons++ }
func (a *recordingApp) MouseMove(x, y float64)                             { a.moves++ }
func (a *recordingApp) Shutdown() error                                    { return nil }

func newTestEngine() (*Engine, *recordingApp) {
	app := &recordingApp{}
	return New(&ApplicationConfig{Name: "test", Window: platform.WindowConfig{Width: 800, Height: 600}}, app), app
}

func TestOnResizeSuspendsWhenMinimized(t *testing.T) {
	e, app := newTestEngine()

	e.OnResize(800, 600)
	assert.Empty(t, app.resizes, "same size is not a resize")

	e.OnResize(0, 0)
	assert.True(t, e.isSuspended)
	assert.Empty(t, app.resizes)

	e.OnResize(1024, 768)
	assert.False(t, e.isSuspended)
	assert.Equal(t, [][2]uint32{{1024, 768}}, app.resizes)

	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
}

func TestInputIsForwarded(t *testing.T) {
	e, app := newTestEngine()
	e.OnKey(core.KEY_SPACE, core.ACTION_PRESS)
	e.OnMouseButton(core.BUTTON_LEFT, core.ACTION_PRESS)
	e.OnMouseMove(1, 2)

	assert.Equal(t, []core.KeyCode{core.KEY_SPACE}, app.keys)
	assert.Equal(t, 1, app.buttons)
	assert.Equal(t, 1, app.moves)
	assert.Equal(t, EngineStageUninitialized, e.Stage())
	assert.Nil(t, e.GPU())
}

func TestGraphicsErrorCode(t *testing.T) {
	err := graphicsError(errors.New("no device"))
	assert.Equal(t, core.ExitGraphicsInit, core.ExitCode(err))

	inner := core.NewExitError(core.ExitShaderCompile, errors.New("bad shader"))
	assert.Equal(t, core.ExitShaderCompile, core.ExitCode(graphicsError(inner)))
}
