package config

import (
	"fmt"
	"time"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

// Validate checks values that cannot be defaulted silently.
func Validate(s Settings) error {
	if s.Port < 0 || s.Port > 65535 {
		return ferrors.ValidationError(fmt.Sprintf("port out of range: %d", s.Port)).Build()
	}
	if s.HistoryRetention != "" {
		if _, err := time.ParseDuration(s.HistoryRetention); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid history_retention").
				WithContext("value", s.HistoryRetention).
				Build()
		}
	}
	for i, pattern := range s.Tutorials {
		if pattern == "" {
			return ferrors.ValidationError(fmt.Sprintf("tutorials[%d] is empty", i)).Build()
		}
	}
	return nil
}
