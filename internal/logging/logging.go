// Package logging sets up the client logger. The TUI owns the terminal, so
// log output goes to a file under the profile directory instead of stderr.
package logging

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Open returns a logger writing to chat.log in dir, and a close func. An
// empty or unknown level disables logging entirely.
func Open(dir, level string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl == zerolog.Disabled {
		return zerolog.Nop(), func() {}, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return zerolog.Nop(), func() {}, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "chat.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	log := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}
