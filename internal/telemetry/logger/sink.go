package logger

import "github.com/yndnr/valtok-go/pkg/token"

// TokenSink logs provider events. Successful calls go to debug, rejected
// tokens to info and failures on our side to error.
func TokenSink(l Logger) token.Sink {
	return token.SinkFunc(func(e token.Event) {
		args := []any{
			"op", string(e.Op),
			"reason", string(e.Reason),
			"duration", e.Duration,
		}
		if e.Fingerprint != "" {
			args = append(args, "token_fp", e.Fingerprint)
		}
		if e.Err != nil {
			args = append(args, "code", token.CodeOf(e.Err), "error", e.Err.Error())
		}

		switch e.Reason {
		case token.ReasonOK:
			l.Debug("token "+string(e.Op), args...)
		case token.ReasonInternal, token.ReasonProtectFailed:
			l.Error("token "+string(e.Op)+" failed", args...)
		default:
			l.Info("token "+string(e.Op)+" rejected", args...)
		}
	})
}
