package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/calcerr"
	"github.com/fpawel/gasflow/internal/data"
	"github.com/fpawel/gasflow/internal/evaluator/httpeval"
	"github.com/fpawel/gasflow/internal/liquid"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/pkg"
	"github.com/fpawel/gasflow/internal/report"
	"github.com/fpawel/gasflow/internal/zfactor"
)

const (
	maxBodySize      = 100 << 10
	historyLimit     = 50
	headerSessionKey = "X-Session-Key"
	contentTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errNoEvaluator = merry.New("no evaluator configured").WithHTTPCode(http.StatusServiceUnavailable)

func (x *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", x.health)
	mux.HandleFunc("POST /api/standardize", x.standardize)
	mux.HandleFunc("POST /api/ctl", x.ctl)
	mux.HandleFunc("GET /api/last", x.last)
	mux.HandleFunc("GET /api/history", x.history)
	mux.HandleFunc("GET /api/export.xlsx", x.exportXLSX)
	mux.HandleFunc("POST /api/aga8-z", x.aga8Z)
	if dir := x.cfg.HTTP.StaticDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			mux.Handle("GET /", http.FileServer(http.Dir(dir)))
		} else {
			log.Warn("static files are not served", "dir", dir, "error", err)
		}
	}
	return logRequests(mux)
}

func logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		h.ServeHTTP(w, r)
		log.Debug(r.Method+" "+r.URL.Path, "remote", r.RemoteAddr, "duration", time.Since(t))
	})
}

func (x *App) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK\n")
}

func (x *App) sessionKey(r *http.Request) string {
	if s := r.Header.Get(headerSessionKey); s != "" {
		return s
	}
	return x.cfg.SessionKey
}

func (x *App) standardize(w http.ResponseWriter, r *http.Request) {
	var in metering.Input
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Preset == "" {
		in.Preset = x.cfg.StandardPreset
	}
	res, err := metering.Standardize(r.Context(), x.engine, in)
	if err != nil {
		writeError(w, err)
		return
	}
	x.save(r.Context(), x.sessionKey(r), data.KindGas, in, res)
	writeJSON(w, http.StatusOK, res)
}

func (x *App) ctl(w http.ResponseWriter, r *http.Request) {
	var in liquid.Input
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := liquid.Correct(in)
	if err != nil {
		writeError(w, err)
		return
	}
	x.save(r.Context(), x.sessionKey(r), data.KindCTL, in, res)
	writeJSON(w, http.StatusOK, res)
}

// save stores the result as the last one of the session. A storage failure
// is logged and does not fail the calculation.
func (x *App) save(ctx context.Context, key, kind string, in, res interface{}) {
	if err := data.SaveLast(ctx, x.db, key, kind, in, res); err != nil {
		log.PrintErr(merry.Append(err, "save last result"), "session", key, "kind", kind)
	}
}

func kindOf(r *http.Request) (string, error) {
	switch k := r.URL.Query().Get("kind"); k {
	case "", data.KindGas:
		return data.KindGas, nil
	case data.KindCTL:
		return data.KindCTL, nil
	default:
		return "", calcerr.InvalidField("kind", "unknown calculation kind %q", k)
	}
}

func (x *App) last(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := data.GetLast(r.Context(), x.db, x.sessionKey(r), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (x *App) history(w http.ResponseWriter, r *http.Request) {
	limit := historyLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, calcerr.InvalidField("limit", "must be a positive integer, got %q", s))
			return
		}
		limit = n
	}
	xs, err := data.ListHistory(r.Context(), x.db, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, xs)
}

func (x *App) exportXLSX(w http.ResponseWriter, r *http.Request) {
	kind, err := kindOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := data.GetLast(r.Context(), x.db, x.sessionKey(r), kind)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	filename := "gas_calculation.xlsx"
	switch kind {
	case data.KindCTL:
		filename = "custody_calculation.xlsx"
		var (
			in  liquid.Input
			res liquid.Result
		)
		if err = e.Decode(&in, &res); err == nil {
			err = report.WriteCTLXLSX(&buf, in, res, x.cfg.FloatPrecision)
		}
	default:
		var (
			in  metering.Input
			res metering.Result
		)
		if err = e.Decode(&in, &res); err == nil {
			err = report.WriteXLSX(&buf, in, res, x.cfg.FloatPrecision)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

type aga8Reply struct {
	OK     bool    `json:"ok"`
	Z      float64 `json:"Z,omitempty"`
	Method string  `json:"method,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// aga8Z evaluates Z with the configured evaluator. This is the service
// contract the http evaluator consumes.
func (x *App) aga8Z(w http.ResponseWriter, r *http.Request) {
	var req httpeval.Request
	if err := decode(w, r, &req); err != nil || !(req.PressurePsia > 0) || !(req.TemperatureR > 0) || req.Mix == nil {
		writeJSON(w, http.StatusBadRequest, aga8Reply{Error: "Invalid input"})
		return
	}
	if x.evaluator == nil {
		writeJSON(w, merry.HTTPCode(errNoEvaluator), aga8Reply{Error: errNoEvaluator.Error()})
		return
	}
	reply, err := x.evaluator.Evaluate(r.Context(), req.PressurePsia, req.TemperatureR, req.Mix)
	if err != nil {
		log.PrintErr(merry.Append(err, "aga8-z"))
		writeJSON(w, http.StatusInternalServerError, aga8Reply{Error: err.Error()})
		return
	}
	if !zfactor.ValidZ(reply.Z) {
		writeJSON(w, http.StatusInternalServerError, aga8Reply{Error: reply.Method + " returned invalid Z"})
		return
	}
	writeJSON(w, http.StatusOK, aga8Reply{OK: true, Z: reply.Z, Method: reply.Method})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return calcerr.InvalidField("body", "%v", err)
	}
	return nil
}

type errorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := merry.HTTPCode(err)
	if status >= http.StatusInternalServerError {
		log.PrintErr(err, "stack", pkg.FormatMerryStacktrace(err, " <- "))
	}
	kind := calcerr.Kind(err)
	if merry.Is(err, data.ErrNotFound) {
		kind = "not_found"
	}
	writeJSON(w, status, errorReply{
		Error: calcerr.Message(err),
		Kind:  kind,
		Field: calcerr.Field(err),
	})
}

// writeJSON encodes v before writing the header so an unencodable value is
// answered with 500 rather than a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeError(w, merry.Prepend(err, "encode response").WithHTTPCode(http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.PrintErr(merry.Append(err, "write response"))
	}
}
