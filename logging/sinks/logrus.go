package sinks

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Nishit5799/multiplayerShooting/logging"
)

// LogrusSink forwards events to a logrus logger as structured entries.
type LogrusSink struct {
	logger logrus.FieldLogger
}

func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Write(event logging.Event) error {
	fields := logrus.Fields{
		"tick":  event.Tick,
		"actor": formatEntity(event.Actor),
	}
	if event.Category != "" {
		fields["category"] = event.Category
	}
	if len(event.Targets) > 0 {
		names := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			names = append(names, formatEntity(target))
		}
		fields["targets"] = names
	}
	if event.Payload != nil {
		fields["payload"] = event.Payload
	}
	for k, v := range event.Extra {
		if _, exists := fields[k]; !exists {
			fields[k] = v
		}
	}

	entry := s.logger.WithFields(fields)
	msg := string(event.Type)
	switch event.Severity {
	case logging.SeverityDebug:
		entry.Debug(msg)
	case logging.SeverityWarn:
		entry.Warn(msg)
	case logging.SeverityError:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}

func (s *LogrusSink) Close(context.Context) error {
	return nil
}
