package logging

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

type Options struct {
	Level string

	// Console writes human-readable lines instead of JSON, for interactive use
	Console bool
}

func Setup(w io.Writer, opts Options) error {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000"
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
		return nil
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
	return nil
}
