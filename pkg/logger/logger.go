package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Level        string `split_words:"true"`
	Service      string `split_words:"true" default:"outreach-orchestrator"`
}

var DefaultConfig = &Config{
	Service: "outreach-orchestrator",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func Init(opts ...Config) {
	InitWithWriter(os.Stdout, opts...)
}

// InitWithWriter sets the global logger to write to w. Level overrides Debug when it parses.
func InitWithWriter(w io.Writer, opts ...Config) {
	conf := safe(opts...)

	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if s := strings.TrimSpace(conf.Service); s != "" {
		ctx = ctx.Str("service", s)
	}
	log.Logger = ctx.Logger().Level(levelFor(conf))
	log.Logger = log.Logger.With().Caller().Stack().Logger()
}

func levelFor(conf *Config) zerolog.Level {
	if l := strings.TrimSpace(conf.Level); l != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(l)); err == nil {
			return parsed
		}
	}
	if conf.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
