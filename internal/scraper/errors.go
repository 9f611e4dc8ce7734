package scraper

import (
	"errors"
	"fmt"
)

// ErrNavigation indicates the page did not load within the timeout. Fatal
// for the run; retries are a caller-level concern.
type ErrNavigation struct {
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigation: %w", e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}

// ErrBotDetected indicates a blocking signal persisted after the evasion
// retry. Distinguishable so callers can retry later or skip permanently.
type ErrBotDetected struct {
	Indicator string
	URL       string
}

func (e ErrBotDetected) Error() string {
	return fmt.Sprintf("CAPTCHA/bot detection encountered for %s (indicator: %q)", e.URL, e.Indicator)
}

// ErrExtraction indicates no rule resolved a required field.
type ErrExtraction struct {
	Field string
}

func (e ErrExtraction) Error() string {
	return fmt.Sprintf("extraction: required field %q not found by any rule", e.Field)
}

// ErrPersistence indicates the artifact directory or record could not be
// written. The page data itself was already extracted; the caller may
// resubmit with a different output path.
type ErrPersistence struct {
	Path string
	Err  error
}

func (e ErrPersistence) Error() string {
	return fmt.Errorf("persistence at %s: %w", e.Path, e.Err).Error()
}

func (e ErrPersistence) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var nav *ErrNavigation
	if errors.As(err, &nav) {
		return "navigation"
	}
	var bot *ErrBotDetected
	if errors.As(err, &bot) {
		return "bot_detected"
	}
	var ext *ErrExtraction
	if errors.As(err, &ext) {
		return "extraction"
	}
	var persist *ErrPersistence
	if errors.As(err, &persist) {
		return "persistence"
	}
	return "other"
}
