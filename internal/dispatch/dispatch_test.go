package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/siteconnect/internal/domain"
)

func TestDo_MissingAction(t *testing.T) {
	d := New("p", nil)
	for _, a := range []string{"", "   ", "!!!"} {
		_, err := d.Do(context.Background(), a, nil)
		assert.ErrorIs(t, err, domain.ErrMissingAction, a)
	}
}

func TestDo_UnknownActionReturnsSeed(t *testing.T) {
	d := New("p", nil)
	out, err := d.Do(context.Background(), "nothing_here", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestDo_ChainRunsInRegistrationOrder(t *testing.T) {
	d := New("ayecode_connect", nil)
	var order []string

	d.On("Update Things", func(ctx context.Context, result any, req *Request) (any, error) {
		order = append(order, "first")
		assert.Equal(t, true, result)
		assert.Equal(t, "update-things", req.Action)
		return "one", nil
	})
	d.On("update-things", func(ctx context.Context, result any, req *Request) (any, error) {
		order = append(order, "second")
		return result.(string) + "+two", nil
	})

	out, err := d.Do(context.Background(), "UPDATE things", &Request{})
	require.NoError(t, err)
	assert.Equal(t, "one+two", out)
	assert.Equal(t, []string{"first", "second"}, order)

	assert.Equal(t, 2, d.Registry().Keys()["ayecode_connect_remote_action_update-things"])
}

func TestDo_HandlerErrorStopsChain(t *testing.T) {
	d := New("p", nil)
	boom := errors.New("boom")
	called := false
	d.On("x", func(context.Context, any, *Request) (any, error) { return nil, boom })
	d.On("x", func(context.Context, any, *Request) (any, error) { called = true; return nil, nil })

	_, err := d.Do(context.Background(), "x", nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestRegistry_HandlersIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Add("k", func(context.Context, any, *Request) (any, error) { return 1, nil })
	hs := r.Handlers("k")
	hs[0] = nil
	assert.NotNil(t, r.Handlers("k")[0])
	r.Add("k", nil)
	assert.Len(t, r.Handlers("k"), 1)
}

func TestParams(t *testing.T) {
	p := Params{
		"s":    "hello",
		"n":    float64(42),
		"ns":   "17",
		"b":    true,
		"obj":  map[string]any{"a": "b"},
		"json": `{"a":"c"}`,
	}
	assert.True(t, p.Has("s"))
	assert.False(t, p.Has("zzz"))
	assert.Equal(t, "hello", p.String("s"))
	assert.Equal(t, "42", p.String("n"))
	assert.Equal(t, int64(42), p.Int64("n"))
	assert.Equal(t, int64(17), p.Int64("ns"))
	assert.Equal(t, "true", p.String("b"))
	assert.Equal(t, "", p.String("missing"))

	var m map[string]string
	require.NoError(t, p.Decode("obj", &m))
	assert.Equal(t, "b", m["a"])
	require.NoError(t, p.Decode("json", &m))
	assert.Equal(t, "c", m["a"])
	assert.Error(t, p.Decode("missing", &m))
}
