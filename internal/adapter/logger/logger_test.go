package logger

import (
	"testing"

	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		conf  config.App
		isNil bool
	}{
		{name: "dev", conf: config.App{LogLevel: "debug", Mode: config.AppModeDevelop}},
		{name: "prod", conf: config.App{LogLevel: "info", Mode: config.AppModeProduction}},
		{name: "bad level", conf: config.App{LogLevel: "loud", Mode: config.AppModeDevelop}, isNil: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			log := NewLogger(&test.conf)
			assert.Equal(t, test.isNil, log == nil)
		})
	}
}
