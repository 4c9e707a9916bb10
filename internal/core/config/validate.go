package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("server.base_url", c.Server.BaseURL, isHTTPURL),
		criterio.Run("server.request_timeout", c.Server.RequestTimeout, isPositiveDuration),
		c.validatePollIntervals(),
		criterio.Run("realtime.reconnect_delay", c.Realtime.ReconnectDelay, isPositiveDuration),
		criterio.Run("realtime.keepalive_interval", c.Realtime.KeepaliveInterval, isPositiveDuration),
		c.validateRules(),
	)
}

func (c *Config) validatePollIntervals() error {
	var errs criterio.FieldErrorsBuilder
	for field, interval := range map[string]time.Duration{
		"poll.list":   c.Poll.List,
		"poll.detail": c.Poll.Detail,
		"poll.fleet":  c.Poll.Fleet,
	} {
		if interval < 500*time.Millisecond {
			errs = errs.Append(field, fmt.Errorf("interval %s is below the 500ms floor", interval))
		}
	}
	return errs.ToError()
}

// validateRules checks rule glob patterns and enum values.
func (c *Config) validateRules() error {
	var errs criterio.FieldErrorsBuilder
	for i, rule := range c.Rules {
		if rule.Pattern == "" {
			errs = errs.Append(fmt.Sprintf("rules[%d].pattern", i), fmt.Errorf("pattern is required"))
			continue
		}
		if !doublestar.ValidatePattern(rule.Pattern) {
			errs = errs.Append(fmt.Sprintf("rules[%d].pattern", i), fmt.Errorf("invalid glob %q", rule.Pattern))
		}
		if rule.Mode != "" {
			switch rule.Mode {
			case "code", "review", "peer_review":
			default:
				errs = errs.Append(fmt.Sprintf("rules[%d].mode", i), fmt.Errorf("unknown mode %q", rule.Mode))
			}
		}
		if rule.Priority != "" {
			switch rule.Priority {
			case "low", "medium", "high", "critical":
			default:
				errs = errs.Append(fmt.Sprintf("rules[%d].priority", i), fmt.Errorf("unknown priority %q", rule.Priority))
			}
		}
		if rule.MaxIterations < 0 {
			errs = errs.Append(fmt.Sprintf("rules[%d].max_iterations", i), fmt.Errorf("must be non-negative"))
		}
	}
	return errs.ToError()
}

func isHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func isPositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
