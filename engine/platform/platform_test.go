package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.KeyCode{
		glfw.KeyEscape: core.KEY_ESCAPE,
		glfw.KeySpace:  core.KEY_SPACE,
		glfw.KeyLeft:   core.KEY_LEFT,
		glfw.KeyRight:  core.KEY_RIGHT,
		glfw.KeyQ:      core.KEY_Q,
		glfw.KeyR:      core.KEY_R,
		glfw.KeyF1:     core.KEY_UNKNOWN,
	}
	for key, want := range cases {
		assert.Equal(t, want, translateKey(key), "glfw key %d", key)
	}
}

func TestTranslateAction(t *testing.T) {
	assert.Equal(t, core.ACTION_PRESS, translateAction(glfw.Press))
	assert.Equal(t, core.ACTION_REPEAT, translateAction(glfw.Repeat))
	assert.Equal(t, core.ACTION_RELEASE, translateAction(glfw.Release))
}

func TestTranslateButton(t *testing.T) {
	b, ok := translateButton(glfw.MouseButtonLeft)
	assert.True(t, ok)
	assert.Equal(t, core.BUTTON_LEFT, b)

	_, ok = translateButton(glfw.MouseButton4)
	assert.False(t, ok)
}

type recordingHandler struct {
	keys   []core.KeyCode
	moves  int
	resize [2]uint32
}

func (r *recordingHandler) OnKey(key core.KeyCode, action core.Action) { r.keys = append(r.keys, key) }
func (r *recordingHandler) OnMouseButton(core.Button, core.Action) {}
func (r *recordingHandler) OnMouseMove(x, y float64) { r.moves++ }
func (r *recordingHandler) OnResize(width, height uint32) { r.resize = [2]uint32{width, height} }

func TestCallbacksForwardToHandler(t *testing.T) {
	p := New()
	p.keyCallback(nil, glfw.KeyQ, 0, glfw.Press, 0)

	h := &recordingHandler{}
	p.SetHandler(h)
	p.keyCallback(nil, glfw.KeyQ, 0, glfw.Press, 0)
	p.keyCallback(nil, glfw.KeyF1, 0, glfw.Press, 0)
	p.cursorPosCallback(nil, 1, 2)
	p.framebufferSizeCallback(nil, 800, 600)

	assert.Equal(t, []core.KeyCode{core.KEY_Q}, h.keys)
	assert.Equal(t, 1, h.moves)
	assert.Equal(t, [2]uint32{800, 600}, h.resize)
}
