package baker

import (
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// glyph is one of the operator-facing event markers named explicitly
// below (+Injected, -Trying to bake, !Couldn't bake, ...).
type glyph struct {
	symbol string
	paint  *color.Color
}

var (
	glyphOK    = glyph{"+", color.New(color.FgGreen)}
	glyphTry   = glyph{"-", color.New(color.FgCyan)}
	glyphWarn  = glyph{"!", color.New(color.FgYellow)}
	glyphError = glyph{"!", color.New(color.FgRed)}
)

// logline prints a colorized one-line event marker to stdout, and always
// also logs the same event through zap so the line survives in a
// non-terminal log sink.
func logline(log *zap.Logger, g glyph, msg string, fields ...zap.Field) {
	g.paint.Println(g.symbol + " " + msg)

	switch g {
	case glyphError:
		log.Error(msg, fields...)
	case glyphWarn:
		log.Warn(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

func logInjected(log *zap.Logger, level uint32, hash string) {
	logline(log, glyphOK, "Injected", zap.Uint32("level", level), zap.String("hash", hash))
}

func logTryingToBake(log *zap.Logger, level uint32) {
	logline(log, glyphTry, "Trying to bake", zap.Uint32("level", level))
}

func logCouldntBake(log *zap.Logger, level uint32, err error) {
	logline(log, glyphWarn, "Couldn't bake", zap.Uint32("level", level), zap.Error(err))
}

func logHeadChanged(log *zap.Logger, level uint32) {
	logline(log, glyphWarn, "Head changed", zap.Uint32("level", level))
}

func logAbandonNonce(log *zap.Logger, level uint32) {
	logline(log, glyphWarn, "Abandon nonce", zap.Uint32("level", level))
}
