package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortDefaults(t *testing.T) {
	p := New()

	assert.False(t, p.Enabled())
	assert.True(t, p.Dirty())
	assert.Equal(t, Snapshot{}, p.Snapshot())
}

func TestPortEnabledRequiresLiteralTrue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"True", false},
		{"1", false},
		{"yes", false},
		{"", false},
		{"false", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			p := New()
			p.Set(AttrEnabled, tt.value)
			assert.Equal(t, tt.want, p.Enabled())
		})
	}
}

func TestPortSetAllAndSnapshot(t *testing.T) {
	p := New()
	p.SetAll(map[string]string{
		AttrEnabled: "true",
		AttrMode:    "fixed",
		AttrRed:     "2",
		AttrGreen:   "-1",
		AttrBlue:    "0",
	})

	assert.Equal(t, Snapshot{Enabled: "true", Mode: "fixed", Red: "2", Green: "-1", Blue: "0"}, p.Snapshot())
	assert.True(t, p.Dirty(), "SetAll must not touch unrelated attributes")
}

func TestPortDirtyFlag(t *testing.T) {
	p := New()
	p.SetDirty(false)
	assert.False(t, p.Dirty())
	assert.Equal(t, "false", p.Get(AttrDirty))

	p.SetDirty(true)
	assert.True(t, p.Dirty())
}

func TestPortDispatch(t *testing.T) {
	p := New()

	var fired int
	p.On(EventManipulate, func() { fired++ })
	p.On("other", func() { t.Fatal("unrelated listener fired") })

	p.Dispatch(EventManipulate)
	p.Dispatch(EventManipulate)

	assert.Equal(t, 2, fired)
	assert.Equal(t, uint64(2), p.Manipulations())
}

func TestPortListenerMaySubscribeDuringDispatch(t *testing.T) {
	p := New()

	var late int
	p.On(EventManipulate, func() {
		p.On(EventManipulate, func() { late++ })
	})

	assert.NotPanics(t, func() { p.Dispatch(EventManipulate) })
	assert.Equal(t, 0, late)

	p.Dispatch(EventManipulate)
	assert.Equal(t, 1, late)
}
