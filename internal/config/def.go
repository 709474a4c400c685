package config

import (
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/zfactor"
)

func defaultConfig() Config {
	return Config{
		LogLevel:       "info",
		FloatPrecision: 6,
		SessionKey:     "default",
		StandardPreset: string(metering.Preset15C),
		HTTP: HTTP{
			Addr:      "127.0.0.1:8080",
			StaticDir: "public",
		},
		DB: DB{
			Filename: "gasflow.sqlite",
		},
		Evaluator: Evaluator{
			Kind:    EvaluatorNone,
			Timeout: zfactor.DefaultTimeout,
		},
	}
}
