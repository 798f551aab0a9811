package runtime_test

import (
	"testing"

	"github.com/candela-lang/candela/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarDerefReturnsRootWhenUnbound(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(1))
	th := runtime.NewThread(nil)
	assert.Equal(t, runtime.NewInt(1), v.Deref(th))
}

func TestNonDynamicVarIgnoresFrameBinding(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(1))
	th := runtime.NewThread(nil)

	saved := runtime.PushBindings(th, []struct {
		Var *runtime.Var
		Val runtime.Value
	}{{v, runtime.NewInt(99)}})
	defer runtime.PopBindings(th, saved)

	assert.Equal(t, runtime.NewInt(1), v.Deref(th), "non-dynamic var must ignore a frame binding")
}

func TestDynamicVarSeesNearestFrameBinding(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(1))
	v.Dynamic = true
	th := runtime.NewThread(nil)

	saved := runtime.PushBindings(th, []struct {
		Var *runtime.Var
		Val runtime.Value
	}{{v, runtime.NewInt(2)}})

	assert.Equal(t, runtime.NewInt(2), v.Deref(th))

	runtime.PopBindings(th, saved)
	assert.Equal(t, runtime.NewInt(1), v.Deref(th), "root value returns after unwinding the frame")
}

func TestSetThreadBindingMutatesNearestFrame(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(0))
	v.Dynamic = true
	th := runtime.NewThread(nil)

	saved := runtime.PushBindings(th, []struct {
		Var *runtime.Var
		Val runtime.Value
	}{{v, runtime.NewInt(1)}})
	defer runtime.PopBindings(th, saved)

	require.NoError(t, runtime.SetThreadBinding(th, v, runtime.NewInt(7)))
	assert.Equal(t, runtime.NewInt(7), v.Deref(th))
}

func TestSetThreadBindingWithoutFrameErrors(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(0))
	v.Dynamic = true
	th := runtime.NewThread(nil)

	err := runtime.SetThreadBinding(th, v, runtime.NewInt(1))
	assert.Error(t, err)
}

func TestThreadCloneInheritsFrameAndNamespace(t *testing.T) {
	v := runtime.NewVar("user", "x", runtime.NewInt(0))
	v.Dynamic = true
	th := runtime.NewThread(nil)
	saved := runtime.PushBindings(th, []struct {
		Var *runtime.Var
		Val runtime.Value
	}{{v, runtime.NewInt(5)}})
	defer runtime.PopBindings(th, saved)

	clone := th.Clone()
	assert.Equal(t, runtime.NewInt(5), v.Deref(clone))
	assert.NotEqual(t, th.ID, clone.ID)
}
