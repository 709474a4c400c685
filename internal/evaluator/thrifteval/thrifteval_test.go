package thrifteval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/fpawel/gasflow/internal/evaluator/leekesler"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testP   = 50 * 14.5037738
	testT   = (20 + 273.15) * 9 / 5
	testMix = gas.ParseComposition("CH4=93.2, C2=3.2, CO2=1.0, N2=2.6").Mixture()
)

func startServer(t *testing.T, ev zfactor.Evaluator) string {
	srv, err := Listen("127.0.0.1:0", ev)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Stop() })
	return srv.Addr()
}

func TestClientServer(t *testing.T) {
	addr := startServer(t, leekesler.New())

	want, err := leekesler.New().Evaluate(context.Background(), testP, testT, testMix)
	require.NoError(t, err)

	c := NewClient(addr, 5*time.Second)
	for i := 0; i < 3; i++ {
		got, err := c.Evaluate(context.Background(), testP, testT, testMix)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestServerFailures(t *testing.T) {
	var calls int32
	addr := startServer(t, zfactor.EvaluatorFunc(func(_ context.Context, p, _ float64, _ gas.Mixture) (zfactor.Reply, error) {
		atomic.AddInt32(&calls, 1)
		if p > 1000 {
			return zfactor.Reply{}, errors.New("out of model range")
		}
		return zfactor.Reply{Z: 2.5, Method: "broken"}, nil
	}))
	c := NewClient(addr, 5*time.Second)

	_, err := c.Evaluate(context.Background(), 2000, testT, testMix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of model range")

	_, err = c.Evaluate(context.Background(), 700, testT, testMix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Z")

	_, err = c.Evaluate(context.Background(), 0, testT, testMix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientUnavailable(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", leekesler.New())
	require.NoError(t, err)
	addr := srv.Addr()
	require.NoError(t, srv.Stop())

	engine := zfactor.New(zfactor.WithEvaluator(NewClient(addr, time.Second)))
	r, err := engine.Compute(context.Background(), zfactor.Request{
		Mode:         zfactor.ModeComposition,
		Composition:  testMix.Composition(),
		PressurePsia: testP,
		TemperatureR: testT,
	})
	require.NoError(t, err)
	assert.Equal(t, zfactor.MethodKayPapay, r.Method)

	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	_, err = NewClient(addr, time.Second).Evaluate(ctx, testP, testT, testMix)
	assert.Error(t, err)
}

func TestArgsCodec(t *testing.T) {
	buf := thrift.NewTMemoryBuffer()
	p := thrift.NewTBinaryProtocolTransport(buf)
	in := evaluateArgs{PressurePsia: testP, TemperatureR: testT, Mix: testMix}
	require.NoError(t, in.Write(p))

	var out evaluateArgs
	require.NoError(t, out.Read(p))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResultCodecSkipsUnknownFields(t *testing.T) {
	buf := thrift.NewTMemoryBuffer()
	p := thrift.NewTBinaryProtocolTransport(buf)
	w := writer{p: p}
	w.structBegin("evaluate_result")
	w.string("note", 7, "ignored")
	w.structField("success", 0, &ZReply{Z: 0.9, Method: "Detail"})
	w.structEnd()
	require.NoError(t, w.err)

	var r evaluateResult
	require.NoError(t, r.Read(p))
	require.NotNil(t, r.Success)
	assert.Nil(t, r.Failure)
	assert.Equal(t, ZReply{Z: 0.9, Method: "Detail"}, *r.Success)
}
