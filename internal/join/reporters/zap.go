package reporters

import "go.uber.org/zap"

// ZapLogger adapts a *zap.SugaredLogger to the join.Logger facade, so it
// can back a join.LogReporter. Grounded on internal/achem/logger.go's
// Logger interface; zap is carried over from the rest of the retrieval
// pack's structured-logging convention rather than reimplemented, since
// the teacher's own Logger facade has no concrete implementation to adapt.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger wraps l.Sugar() into the join.Logger shape.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{S: l.Sugar()}
}

func (z *ZapLogger) Debugf(format string, v ...any) { z.S.Debugf(format, v...) }
func (z *ZapLogger) Infof(format string, v ...any)  { z.S.Infof(format, v...) }
func (z *ZapLogger) Warnf(format string, v ...any)  { z.S.Warnf(format, v...) }
func (z *ZapLogger) Errorf(format string, v ...any) { z.S.Errorf(format, v...) }
