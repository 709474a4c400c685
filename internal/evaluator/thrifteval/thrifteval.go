// Package thrifteval runs Z evaluators out of process over Thrift binary
// protocol. Client implements zfactor.Evaluator by calling a remote ZService;
// Server exposes any zfactor.Evaluator as a ZService.
package thrifteval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ansel1/merry"
	"github.com/apache/thrift/lib/go/thrift"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "thrifteval")

var errMapType = errors.New("mix: want map<string,double>")

const bufferSize = 8192

// Client opens a connection per call.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient returns a client of the service at addr. timeout bounds socket
// reads and writes; a context deadline shortens it.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

func (x *Client) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (zfactor.Reply, error) {
	timeout := x.timeout
	if deadline, ok := ctx.Deadline(); ok {
		d := time.Until(deadline)
		if d <= 0 {
			return zfactor.Reply{}, merry.Wrap(context.DeadlineExceeded)
		}
		if timeout == 0 || d < timeout {
			timeout = d
		}
	}

	socket, err := thrift.NewTSocketTimeout(x.addr, timeout)
	if err != nil {
		return zfactor.Reply{}, merry.Prepend(err, x.addr)
	}
	transport, err := thrift.NewTBufferedTransportFactory(bufferSize).GetTransport(socket)
	if err != nil {
		return zfactor.Reply{}, merry.Prepend(err, x.addr)
	}
	if err := transport.Open(); err != nil {
		return zfactor.Reply{}, merry.Prepend(err, x.addr)
	}
	defer log.ErrIfFail(transport.Close)

	protocol := thrift.NewTBinaryProtocolFactoryDefault().GetProtocol(transport)
	client := thrift.NewTStandardClient(protocol, protocol)

	var result evaluateResult
	err = client.Call(ctx, methodEvaluate, &evaluateArgs{
		PressurePsia: pressurePsia,
		TemperatureR: temperatureR,
		Mix:          mix,
	}, &result)
	if err != nil {
		return zfactor.Reply{}, merry.Prependf(err, "%s: %s", x.addr, methodEvaluate)
	}
	switch {
	case result.Failure != nil:
		return zfactor.Reply{}, merry.Errorf("%s: %s", x.addr, result.Failure.Message)
	case result.Success == nil:
		return zfactor.Reply{}, merry.Errorf("%s: %s: empty result", x.addr, methodEvaluate)
	}
	return zfactor.Reply{Z: result.Success.Z, Method: result.Success.Method}, nil
}

// Processor dispatches ZService calls to an evaluator.
type Processor struct {
	ev zfactor.Evaluator
}

func NewProcessor(ev zfactor.Evaluator) *Processor {
	return &Processor{ev: ev}
}

func (x *Processor) Process(ctx context.Context, in, out thrift.TProtocol) (bool, thrift.TException) {
	name, _, seqID, err := in.ReadMessageBegin()
	if err != nil {
		return false, protocolError(err)
	}
	if name != methodEvaluate {
		if err := in.Skip(thrift.STRUCT); err != nil {
			return false, protocolError(err)
		}
		if err := in.ReadMessageEnd(); err != nil {
			return false, protocolError(err)
		}
		exc := thrift.NewTApplicationException(thrift.UNKNOWN_METHOD, "unknown method "+name)
		writeException(ctx, out, name, seqID, exc)
		return false, exc
	}

	var args evaluateArgs
	if err := args.Read(in); err != nil {
		_ = in.ReadMessageEnd()
		exc := thrift.NewTApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		writeException(ctx, out, name, seqID, exc)
		return false, exc
	}
	if err := in.ReadMessageEnd(); err != nil {
		return false, protocolError(err)
	}

	result := x.evaluate(ctx, args)

	if err := out.WriteMessageBegin(name, thrift.REPLY, seqID); err != nil {
		return false, protocolError(err)
	}
	if err := result.Write(out); err != nil {
		return false, protocolError(err)
	}
	if err := out.WriteMessageEnd(); err != nil {
		return false, protocolError(err)
	}
	if err := out.Flush(ctx); err != nil {
		return false, protocolError(err)
	}
	return true, nil
}

func (x *Processor) evaluate(ctx context.Context, args evaluateArgs) evaluateResult {
	if !(args.PressurePsia > 0) || !(args.TemperatureR > 0) || len(args.Mix) == 0 {
		return evaluateResult{Failure: &EvalError{Message: "invalid input"}}
	}
	reply, err := x.ev.Evaluate(ctx, args.PressurePsia, args.TemperatureR, args.Mix)
	if err != nil {
		log.Warn("evaluate failed", "p_psia", args.PressurePsia, "t_r", args.TemperatureR, "reason", err)
		return evaluateResult{Failure: &EvalError{Message: err.Error()}}
	}
	if !zfactor.ValidZ(reply.Z) {
		return evaluateResult{Failure: &EvalError{Message: fmt.Sprintf("%s returned invalid Z %v", reply.Method, reply.Z)}}
	}
	return evaluateResult{Success: &ZReply{Z: reply.Z, Method: reply.Method}}
}

// protocolError keeps transport errors intact so the server recognizes a
// closed connection.
func protocolError(err error) thrift.TException {
	if e, ok := err.(thrift.TException); ok {
		return e
	}
	return thrift.NewTProtocolException(err)
}

func writeException(ctx context.Context, out thrift.TProtocol, name string, seqID int32, exc thrift.TApplicationException) {
	log.ErrIfFail(func() error {
		if err := out.WriteMessageBegin(name, thrift.EXCEPTION, seqID); err != nil {
			return err
		}
		if err := exc.Write(out); err != nil {
			return err
		}
		if err := out.WriteMessageEnd(); err != nil {
			return err
		}
		return out.Flush(ctx)
	})
}

type Server struct {
	socket *thrift.TServerSocket
	server *thrift.TSimpleServer
}

// Listen binds addr and returns a server exposing ev. Call Serve to accept
// connections.
func Listen(addr string, ev zfactor.Evaluator) (*Server, error) {
	socket, err := thrift.NewTServerSocket(addr)
	if err != nil {
		return nil, merry.Prepend(err, addr)
	}
	server := thrift.NewTSimpleServer4(NewProcessor(ev), socket,
		thrift.NewTBufferedTransportFactory(bufferSize), thrift.NewTBinaryProtocolFactoryDefault())
	if err := server.Listen(); err != nil {
		return nil, merry.Prepend(err, addr)
	}
	log.Info("z service listening", "addr", socket.Addr())
	return &Server{socket: socket, server: server}, nil
}

func (x *Server) Addr() string {
	return x.socket.Addr().String()
}

// Serve accepts connections until Stop is called.
func (x *Server) Serve() error {
	return x.server.AcceptLoop()
}

func (x *Server) Stop() error {
	return x.server.Stop()
}
