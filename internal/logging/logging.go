// Package logging configures the package-wide zerolog logger the way
// the teacher does: a console writer when attached to a terminal,
// colorized via go-colorable on Windows consoles, plain structured
// JSON otherwise (e.g. under a process manager or when piped).
package logging

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the process-wide logger at the given level. Call it
// once from the host program's entry point before spawning any
// workers, mirroring the teacher's use of log.Info()/log.Trace() from
// package init state in internal/worker and internal/zygote.
func Init(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	var writer = os.Stderr
	if isatty.IsTerminal(writer.Fd()) || isatty.IsCygwinTerminal(writer.Fd()) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: colorable.NewColorable(writer), TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
		return
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}
