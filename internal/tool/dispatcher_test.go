package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nameSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"name": {"type": "string"}},
	"required": ["name"]
}`)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register("greet", "", nameSchema,
		func(_ context.Context, args map[string]any) (any, error) {
			return "hi " + args["name"].(string), nil
		}))
	require.NoError(t, r.Register("fails", "", okSchema,
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		}))
	require.NoError(t, r.Register("panics", "", okSchema,
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("handler bug")
		}))
	return NewDispatcher(r)
}

func TestDispatchSuccess(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), Invocation{
		Tool:      "greet",
		Arguments: map[string]any{"name": "Misty"},
	})
	require.False(t, res.Failed())
	assert.Equal(t, "hi Misty", res.Payload)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), Invocation{Tool: "nope"})
	require.True(t, res.Failed())
	assert.Equal(t, KindUnknownTool, res.Failure.Kind)
	assert.ErrorIs(t, res.Failure, ErrUnknownTool)
}

func TestDispatchInvalidArguments(t *testing.T) {
	d := newTestDispatcher(t)

	// Missing required argument.
	res := d.Dispatch(context.Background(), Invocation{Tool: "greet"})
	require.True(t, res.Failed())
	assert.Equal(t, KindInvalidArguments, res.Failure.Kind)

	// Wrong argument type.
	res = d.Dispatch(context.Background(), Invocation{
		Tool:      "greet",
		Arguments: map[string]any{"name": float64(25)},
	})
	require.True(t, res.Failed())
	assert.Equal(t, KindInvalidArguments, res.Failure.Kind)
}

func TestDispatchHandlerError(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), Invocation{Tool: "fails"})
	require.True(t, res.Failed())
	assert.Equal(t, KindHandlerError, res.Failure.Kind)
	assert.Contains(t, res.Failure.Message, "boom")
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), Invocation{Tool: "panics"})
	require.True(t, res.Failed())
	assert.Equal(t, KindHandlerError, res.Failure.Kind)
	assert.Contains(t, res.Failure.Message, "handler bug")
}

func TestResultIsTagged(t *testing.T) {
	// A successful payload that happens to contain an "error" key must not
	// be mistaken for a failure.
	ok := Succeed(map[string]any{"error": "just data"})
	assert.False(t, ok.Failed())

	failed := Fail(KindHandlerError, "real failure", nil)
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Payload)
}
