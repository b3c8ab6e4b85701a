package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxHowToLength bounds the how-to text of a command.
const MaxHowToLength = 250

var (
	ErrHowToRequired       = errors.New("howTo is required")
	ErrHowToTooLong        = errors.New("howTo must be at most 250 characters")
	ErrPlatformRequired    = errors.New("platform is required")
	ErrCommandLineRequired = errors.New("commandLine is required")
)

// Command is a saved shell command with the platform it applies to and
// a short description of what it does.
type Command struct {
	ID          int64  `json:"id"`
	HowTo       string `json:"howTo"`
	Platform    string `json:"platform"`
	CommandLine string `json:"commandLine"`
}

// Validate checks the user supplied fields. The id is not inspected.
func (c Command) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HowTo) == "" {
		errs = append(errs, ErrHowToRequired)
	} else if utf8.RuneCountInString(c.HowTo) > MaxHowToLength {
		errs = append(errs, ErrHowToTooLong)
	}
	if strings.TrimSpace(c.Platform) == "" {
		errs = append(errs, ErrPlatformRequired)
	}
	if strings.TrimSpace(c.CommandLine) == "" {
		errs = append(errs, ErrCommandLineRequired)
	}
	return errors.Join(errs...)
}
