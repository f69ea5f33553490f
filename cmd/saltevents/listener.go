package main

import (
	"log/slog"
	"strings"

	"github.com/c360/saltstreams/decode"
	"github.com/c360/saltstreams/event"
	"github.com/c360/saltstreams/salterror"
)

// eventLogger logs every event whose tag matches prefix
type eventLogger struct {
	logger *slog.Logger
	prefix string
}

func newEventLogger(logger *slog.Logger, prefix string) *eventLogger {
	return &eventLogger{
		logger: logger,
		prefix: prefix,
	}
}

func (l *eventLogger) Notify(env event.Envelope) {
	if !strings.HasPrefix(env.Tag, l.prefix) {
		return
	}

	if ret, ok := event.ParseJobReturn(env); ok {
		l.logJobReturn(ret)
		return
	}
	if job, ok := event.ParseNewJob(env); ok {
		l.logger.Info("Job published",
			"jid", job.JobID, "function", job.Data.Function,
			"target", job.Data.Target, "minions", len(job.Data.Minions))
		return
	}
	if start, ok := event.ParseMinionStart(env); ok {
		l.logger.Info("Minion started", "minion", start.MinionID)
		return
	}
	if beacon, ok := event.ParseBeacon(env); ok {
		l.logger.Info("Beacon fired", "minion", beacon.MinionID, "beacon", beacon.BeaconType)
		return
	}
	if batch, ok := event.ParseBatchStart(env); ok {
		l.logger.Info("Batch started", "batch", batch.BatchID, "minions", len(batch.Data.Minions))
		return
	}

	l.logger.Info("Event", "tag", env.Tag, "category", env.Category(), "size", len(env.Data))
}

func (l *eventLogger) logJobReturn(ret event.JobReturnEvent) {
	attrs := []any{
		"jid", ret.JobID,
		"minion", ret.MinionID,
		"function", ret.Data.Function,
		"retcode", ret.Data.RetCode,
	}

	// A job that failed remotely usually returns a message string instead of
	// its normal shape; classify it so the log says why.
	event.Result(ret.Data, decode.JSON[map[string]any]()).Consume(
		func(err salterror.SaltError) {
			switch e := err.(type) {
			case salterror.FunctionNotAvailable:
				l.logger.Warn("Job function not available", append(attrs, "name", e.Name)...)
			case salterror.ModuleNotSupported:
				l.logger.Warn("Job module not supported", append(attrs, "name", e.Name)...)
			case salterror.StackTrace:
				l.logger.Warn("Job raised an exception", append(attrs, "trace", e.Text)...)
			default:
				l.logger.Info("Job returned", append(attrs, "success", ret.Data.Success)...)
			}
		},
		func(value map[string]any) {
			l.logger.Info("Job returned", append(attrs, "success", ret.Data.Success, "keys", len(value))...)
		},
	)
}

func (l *eventLogger) StreamClosed(code int, reason string) {
	l.logger.Info("Event stream closed", "code", code, "reason", reason)
}
