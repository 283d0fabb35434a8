package config

import "time"

const (
	DefaultPort             = 8686
	DefaultGenerator        = "jsdoc"
	DefaultNATSSubject      = "jsdocpreview.events"
	DefaultHistoryFile      = "history.db"
	DefaultHistoryRetention = 7 * 24 * time.Hour
)

// Defaults returns the settings used when a key is absent from the file.
func Defaults() Settings {
	return Settings{
		AutoOpenBrowser:  true,
		Port:             DefaultPort,
		Generator:        DefaultGenerator,
		HistoryRetention: DefaultHistoryRetention.String(),
		NATS:             NATSConfig{Subject: DefaultNATSSubject},
		Logging:          LoggingConfig{Level: string(LogLevelInfo), Format: string(LogFormatText)},
	}
}

// applyDefaults fills values a file set explicitly to empty.
func applyDefaults(s *Settings) {
	if s.Generator == "" {
		s.Generator = DefaultGenerator
	}
	if s.NATS.Subject == "" {
		s.NATS.Subject = DefaultNATSSubject
	}
	if s.HistoryRetention == "" {
		s.HistoryRetention = DefaultHistoryRetention.String()
	}
	s.Logging.Level = string(NormalizeLogLevel(s.Logging.Level))
	s.Logging.Format = string(NormalizeLogFormat(s.Logging.Format))
}
