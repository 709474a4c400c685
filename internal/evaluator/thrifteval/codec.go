package thrifteval

import (
	"sort"

	"github.com/apache/thrift/lib/go/thrift"
)

// Wire types of the service
//
//	struct ZReply { 1: double z, 2: string method }
//	exception EvalError { 1: string message }
//	service ZService {
//	    ZReply evaluate(1: double p_psia, 2: double t_rankine, 3: map<string,double> mix)
//	        throws (1: EvalError failure)
//	}

const methodEvaluate = "evaluate"

type ZReply struct {
	Z      float64
	Method string
}

type EvalError struct {
	Message string
}

func (x *EvalError) Error() string {
	return x.Message
}

type evaluateArgs struct {
	PressurePsia float64
	TemperatureR float64
	Mix          map[string]float64
}

type evaluateResult struct {
	Success *ZReply
	Failure *EvalError
}

// writer stops at the first protocol error.
type writer struct {
	p   thrift.TProtocol
	err error
}

func (w *writer) do(f func() error) {
	if w.err == nil {
		w.err = f()
	}
}

func (w *writer) structBegin(name string) { w.do(func() error { return w.p.WriteStructBegin(name) }) }

func (w *writer) structEnd() {
	w.do(w.p.WriteFieldStop)
	w.do(w.p.WriteStructEnd)
}

func (w *writer) double(name string, id int16, v float64) {
	w.do(func() error { return w.p.WriteFieldBegin(name, thrift.DOUBLE, id) })
	w.do(func() error { return w.p.WriteDouble(v) })
	w.do(w.p.WriteFieldEnd)
}

func (w *writer) string(name string, id int16, v string) {
	w.do(func() error { return w.p.WriteFieldBegin(name, thrift.STRING, id) })
	w.do(func() error { return w.p.WriteString(v) })
	w.do(w.p.WriteFieldEnd)
}

func (w *writer) mapStringDouble(name string, id int16, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.do(func() error { return w.p.WriteFieldBegin(name, thrift.MAP, id) })
	w.do(func() error { return w.p.WriteMapBegin(thrift.STRING, thrift.DOUBLE, len(m)) })
	for _, k := range keys {
		k := k
		w.do(func() error { return w.p.WriteString(k) })
		w.do(func() error { return w.p.WriteDouble(m[k]) })
	}
	w.do(w.p.WriteMapEnd)
	w.do(w.p.WriteFieldEnd)
}

func (w *writer) structField(name string, id int16, s thrift.TStruct) {
	w.do(func() error { return w.p.WriteFieldBegin(name, thrift.STRUCT, id) })
	w.do(func() error { return s.Write(w.p) })
	w.do(w.p.WriteFieldEnd)
}

// readStruct calls field for every field of the struct; fields it does not
// consume are skipped.
func readStruct(p thrift.TProtocol, field func(id int16, t thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(); err != nil {
		return err
	}
	for {
		_, t, id, err := p.ReadFieldBegin()
		if err != nil {
			return err
		}
		if t == thrift.STOP {
			break
		}
		ok, err := field(id, t)
		if err != nil {
			return err
		}
		if !ok {
			if err := p.Skip(t); err != nil {
				return err
			}
		}
		if err := p.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return p.ReadStructEnd()
}

func (x *ZReply) Write(p thrift.TProtocol) error {
	w := writer{p: p}
	w.structBegin("ZReply")
	w.double("z", 1, x.Z)
	w.string("method", 2, x.Method)
	w.structEnd()
	return w.err
}

func (x *ZReply) Read(p thrift.TProtocol) error {
	return readStruct(p, func(id int16, t thrift.TType) (ok bool, err error) {
		switch {
		case id == 1 && t == thrift.DOUBLE:
			x.Z, err = p.ReadDouble()
			return true, err
		case id == 2 && t == thrift.STRING:
			x.Method, err = p.ReadString()
			return true, err
		}
		return false, nil
	})
}

func (x *EvalError) Write(p thrift.TProtocol) error {
	w := writer{p: p}
	w.structBegin("EvalError")
	w.string("message", 1, x.Message)
	w.structEnd()
	return w.err
}

func (x *EvalError) Read(p thrift.TProtocol) error {
	return readStruct(p, func(id int16, t thrift.TType) (ok bool, err error) {
		if id == 1 && t == thrift.STRING {
			x.Message, err = p.ReadString()
			return true, err
		}
		return false, nil
	})
}

func (x *evaluateArgs) Write(p thrift.TProtocol) error {
	w := writer{p: p}
	w.structBegin("evaluate_args")
	w.double("p_psia", 1, x.PressurePsia)
	w.double("t_rankine", 2, x.TemperatureR)
	w.mapStringDouble("mix", 3, x.Mix)
	w.structEnd()
	return w.err
}

func (x *evaluateArgs) Read(p thrift.TProtocol) error {
	return readStruct(p, func(id int16, t thrift.TType) (ok bool, err error) {
		switch {
		case id == 1 && t == thrift.DOUBLE:
			x.PressurePsia, err = p.ReadDouble()
			return true, err
		case id == 2 && t == thrift.DOUBLE:
			x.TemperatureR, err = p.ReadDouble()
			return true, err
		case id == 3 && t == thrift.MAP:
			x.Mix, err = readMapStringDouble(p)
			return true, err
		}
		return false, nil
	})
}

func readMapStringDouble(p thrift.TProtocol) (map[string]float64, error) {
	kt, vt, size, err := p.ReadMapBegin()
	if err != nil {
		return nil, err
	}
	if kt != thrift.STRING || vt != thrift.DOUBLE {
		return nil, thrift.NewTProtocolExceptionWithType(thrift.INVALID_DATA, errMapType)
	}
	m := make(map[string]float64, size)
	for i := 0; i < size; i++ {
		k, err := p.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := p.ReadDouble()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, p.ReadMapEnd()
}

func (x *evaluateResult) Write(p thrift.TProtocol) error {
	w := writer{p: p}
	w.structBegin("evaluate_result")
	if x.Success != nil {
		w.structField("success", 0, x.Success)
	}
	if x.Failure != nil {
		w.structField("failure", 1, x.Failure)
	}
	w.structEnd()
	return w.err
}

func (x *evaluateResult) Read(p thrift.TProtocol) error {
	return readStruct(p, func(id int16, t thrift.TType) (bool, error) {
		switch {
		case id == 0 && t == thrift.STRUCT:
			x.Success = new(ZReply)
			return true, x.Success.Read(p)
		case id == 1 && t == thrift.STRUCT:
			x.Failure = new(EvalError)
			return true, x.Failure.Read(p)
		}
		return false, nil
	})
}
