package lifecycle

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterHookRejectsDuplicateAndOverflow(t *testing.T) {
	l := New(nil)

	assert.NoError(t, l.RegisterHook("a", func() {}))
	assert.Error(t, l.RegisterHook("a", func() {}))

	for i := 0; i < maxShutdownHooks-1; i++ {
		assert.NoError(t, l.RegisterHook("hook-"+strconv.Itoa(i), func() {}))
	}
	assert.Error(t, l.RegisterHook("overflow", func() {}))
}

func TestRunStopsWhenShutdownRequested(t *testing.T) {
	l := New(nil)
	l.pollInterval = time.Millisecond

	var ranHook bool
	assert.NoError(t, l.RegisterHook("mark", func() { ranHook = true }))

	go func() {
		time.Sleep(5 * time.Millisecond)
		l.RequestShutdown()
	}()

	done := make(chan error, 1)
	go func() { done <- l.Run(nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after shutdown was requested")
	}
	assert.True(t, ranHook)
}
