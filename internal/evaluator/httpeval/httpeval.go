// Package httpeval delegates Z evaluation to an HTTP service.
//
// The request body is {"P_psia": ..., "T_R": ..., "mix": {...}}. Z and the
// method name are read from the JSON response with JSONPath expressions, so
// services with a different reply shape can be used as is. A response with
// "ok": false is an error.
package httpeval

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "httpeval")

const (
	DefaultZPath      = "$.Z"
	DefaultMethodPath = "$.method"
	maxResponseSize   = 1 << 20
)

// Request is the JSON body posted to the service.
type Request struct {
	PressurePsia float64     `json:"P_psia"`
	TemperatureR float64     `json:"T_R"`
	Mix          gas.Mixture `json:"mix"`
}

type Config struct {
	URL        string
	ZPath      string
	MethodPath string

	Timeout         time.Duration
	DialTimeout     time.Duration
	KeepAlive       time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration
}

func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		ZPath:           DefaultZPath,
		MethodPath:      DefaultMethodPath,
		Timeout:         10 * time.Second,
		DialTimeout:     3 * time.Second,
		KeepAlive:       30 * time.Second,
		ResponseHeader:  10 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

type Evaluator struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) (*Evaluator, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, merry.New("http evaluator: url is not set")
	}
	if cfg.ZPath == "" {
		cfg.ZPath = DefaultZPath
	}
	if cfg.MethodPath == "" {
		cfg.MethodPath = DefaultMethodPath
	}
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	return &Evaluator{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       cfg.IdleConnTimeout,
				ResponseHeaderTimeout: cfg.ResponseHeader,
			},
			Timeout: cfg.Timeout,
		},
	}, nil
}

func (x *Evaluator) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (zfactor.Reply, error) {
	payload, err := json.Marshal(Request{PressurePsia: pressurePsia, TemperatureR: temperatureR, Mix: mix})
	if err != nil {
		return zfactor.Reply{}, merry.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return zfactor.Reply{}, merry.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return zfactor.Reply{}, merry.Prepend(err, x.cfg.URL)
	}
	defer log.ErrIfFail(resp.Body.Close)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return zfactor.Reply{}, merry.Prepend(err, x.cfg.URL)
	}
	log.Debug("reply", "url", x.cfg.URL, "status", resp.StatusCode, "size", len(body))
	return x.parse(resp.StatusCode, body)
}

func (x *Evaluator) parse(status int, body []byte) (zfactor.Reply, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return zfactor.Reply{}, merry.Errorf("%s: status %d: response is not JSON", x.cfg.URL, status)
	}
	if m, _ := doc.(map[string]interface{}); m != nil {
		if ok, isBool := m["ok"].(bool); isBool && !ok {
			msg, _ := m["error"].(string)
			return zfactor.Reply{}, merry.Errorf("%s: status %d: %s", x.cfg.URL, status, msg)
		}
	}
	if status < 200 || status > 299 {
		return zfactor.Reply{}, merry.Errorf("%s: status %d", x.cfg.URL, status)
	}

	v, err := jsonpath.Get(x.cfg.ZPath, doc)
	if err != nil {
		return zfactor.Reply{}, merry.Prependf(err, "%s: Z at %s", x.cfg.URL, x.cfg.ZPath)
	}
	z, ok := number(v)
	if !ok {
		return zfactor.Reply{}, merry.Errorf("%s: Z at %s is not a number: %v", x.cfg.URL, x.cfg.ZPath, v)
	}

	r := zfactor.Reply{Z: z}
	if v, err := jsonpath.Get(x.cfg.MethodPath, doc); err == nil {
		r.Method, _ = single(v).(string)
	}
	if r.Method == "" {
		r.Method = "http"
	}
	return r, nil
}

// single unwraps a one-element result of a wildcard or filter expression.
func single(v interface{}) interface{} {
	if xs, ok := v.([]interface{}); ok && len(xs) == 1 {
		return xs[0]
	}
	return v
}

func number(v interface{}) (float64, bool) {
	switch v := single(v).(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
