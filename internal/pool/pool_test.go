package pool

import (
	"testing"
	"time"

	cdruntime "github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
)

func TestPoolSubmitRunsOnWorker(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	fut := p.Submit(nil, func(th *cdruntime.Thread) (cdruntime.Value, error) {
		return cdruntime.NewInt(42), nil
	})

	v, err := fut.Get()
	assert.NoError(t, err)
	assert.Equal(t, cdruntime.NewInt(42), v)
}

func TestFutureGetWithTimeoutExpires(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	block := make(chan struct{})
	fut := p.Submit(nil, func(th *cdruntime.Thread) (cdruntime.Value, error) {
		<-block
		return cdruntime.Nil, nil
	})

	_, _, ok := fut.GetWithTimeout(10 * time.Millisecond)
	assert.False(t, ok)
	close(block)
	_, err := fut.Get()
	assert.NoError(t, err)
}

func TestAgentActionsSerializePerAgent(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	agent := cdruntime.NewAgent(cdruntime.NewInt(0))
	incr := &cdruntime.BuiltinFn{Name: "inc", Fn: func(th *cdruntime.Thread, args []cdruntime.Value) (cdruntime.Value, error) {
		return cdruntime.Add(args[0], cdruntime.NewInt(1), true)
	}}

	const n = 50
	for i := 0; i < n; i++ {
		p.SubmitAgentAction(nil, agent, cdruntime.AgentAction{Fn: incr})
	}

	deadline := time.Now().Add(2 * time.Second)
	for agent.Deref().(cdruntime.Int).I != n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int64(n), agent.Deref().(cdruntime.Int).I)
}

func TestPMapPreservesOrder(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	double := &cdruntime.BuiltinFn{Name: "double", Fn: func(th *cdruntime.Thread, args []cdruntime.Value) (cdruntime.Value, error) {
		return cdruntime.Mul(args[0], cdruntime.NewInt(2), true)
	}}

	in := []cdruntime.Value{cdruntime.NewInt(1), cdruntime.NewInt(2), cdruntime.NewInt(3)}
	out, err := p.PMap(nil, double, in)
	assert.NoError(t, err)
	assert.Equal(t, []cdruntime.Value{cdruntime.NewInt(2), cdruntime.NewInt(4), cdruntime.NewInt(6)}, out)
}
