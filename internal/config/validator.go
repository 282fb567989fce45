package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/arena/internal/debate"
	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "debate.max_chars")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidationFailure marks configuration errors as safe to show to the
// operator who supplied the configuration.
func (e ValidationErrors) ValidationFailure() bool { return true }

// Upper bounds for configured values.
const (
	maxRecruitMinutes = 24 * 60
	maxMessageLimit   = 100
	maxCharsLimit     = 4000
	maxLogSizeMB      = 1000
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDebate()...)
	errors = append(errors, c.validateTopics()...)
	errors = append(errors, c.validateModeration()...)
	errors = append(errors, c.validateChannels()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// ValidateDebate checks per-session limits against the same bounds as the
// debate section of the config file. It returns nil or ValidationErrors.
func ValidateDebate(d debate.Config) error {
	if errs := validateDebateLimits(d); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

func (c *Config) validateDebate() []ValidationError {
	return validateDebateLimits(c.Debate)
}

func validateDebateLimits(d debate.Config) []ValidationError {
	var errors []ValidationError

	bounded := []struct {
		field string
		value int
		max   int
	}{
		{"debate.recruit_time_minutes", d.RecruitTimeMinutes, maxRecruitMinutes},
		{"debate.message_limit", d.MessageLimitPerPerson, maxMessageLimit},
		{"debate.max_chars", d.MaxCharsPerMessage, maxCharsLimit},
	}
	for _, b := range bounded {
		switch {
		case b.value <= 0:
			errors = append(errors, ValidationError{Field: b.field, Value: b.value, Message: "must be positive"})
		case b.value > b.max:
			errors = append(errors, ValidationError{Field: b.field, Value: b.value, Message: fmt.Sprintf("exceeds maximum of %d", b.max)})
		}
	}

	return errors
}

func (c *Config) validateTopics() []ValidationError {
	var errors []ValidationError

	if len(c.Topics) == 0 {
		return nil
	}
	for i, topic := range c.Topics {
		if strings.TrimSpace(topic) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("topics[%d]", i),
				Value:   topic,
				Message: "must not be blank",
			})
		}
	}

	return errors
}

func (c *Config) validateModeration() []ValidationError {
	var errors []ValidationError

	for i, word := range c.Moderation.ProhibitedWords {
		if strings.TrimSpace(word) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("moderation.prohibited_words[%d]", i),
				Value:   word,
				Message: "must not be blank",
			})
		}
	}

	for i, pattern := range c.Moderation.AttackPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("moderation.attack_patterns[%d]", i),
				Value:   pattern,
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateChannels() []ValidationError {
	var errors []ValidationError

	for i, pattern := range c.Channels.Allowed {
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("channels.allowed[%d]", i),
				Value:   pattern,
				Message: "must not be blank",
			})
			continue
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("channels.allowed[%d]", i),
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	} else if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
