package notify

import "log/slog"

// SlogSink returns a subscriber that records every lifecycle event in the
// process log, so no terminal outcome can be silently dropped.
func SlogSink(logger *slog.Logger) Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return func(event Event) {
		attrs := []any{slog.String("event", string(event.Type))}
		if event.Event != nil {
			attrs = append(attrs, slog.String("error_id", event.Event.ID))
		}
		if event.Plan != nil {
			attrs = append(attrs, slog.String("analysis_id", event.Plan.AnalysisID))
		}
		if event.Error != "" {
			attrs = append(attrs, slog.String("cause", event.Error))
			logger.Error("lifecycle notification", attrs...)
			return
		}
		logger.Info("lifecycle notification", attrs...)
	}
}
