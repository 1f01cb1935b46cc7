package ostinato

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-wide logger. Engines and query builders write
// statement logs and dialect fallback warnings through it; replace it to
// route output elsewhere.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// Warnf logs a formatted warning.
func Warnf(format string, args ...any) {
	Logger.Warn().Msgf(format, args...)
}
