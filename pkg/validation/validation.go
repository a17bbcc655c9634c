package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Item ids are Zabbix numeric ids, but any token without separators is accepted
	itemIDRegex = regexp.MustCompile(`^[a-zA-Z0-9-]{1,64}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateHostname checks that a hostname can be used as a file name prefix.
// Underscores are allowed since file names are split from the right.
func ValidateHostname(name string) error {
	if name == "" {
		return errors.New("hostname cannot be empty")
	}

	if name != SanitizeString(name) {
		return errors.New("hostname contains control characters or surrounding whitespace")
	}

	if len(name) > 255 {
		return errors.New("hostname must not exceed 255 characters")
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.New("hostname must not contain path separators")
	}

	if strings.ContainsAny(name, "*?[") {
		return errors.New("hostname must not contain glob characters")
	}

	return nil
}

// ValidateItemID checks an item id. Empty is valid: cluster series carry none.
func ValidateItemID(id string) error {
	if id == "" {
		return nil
	}

	if !itemIDRegex.MatchString(id) {
		return errors.New("item id must contain only letters, numbers and hyphens")
	}

	return nil
}

// ValidateMetric checks a canonical metric name. Unmapped raw labels such as
// "CPU idle" pass through the catalog, so spaces are allowed.
func ValidateMetric(metric string) error {
	if metric == "" {
		return errors.New("metric cannot be empty")
	}

	if metric != SanitizeString(metric) {
		return errors.New("metric contains control characters or surrounding whitespace")
	}

	if len(metric) > 128 {
		return errors.New("metric must not exceed 128 characters")
	}

	// metric names sit between underscores in snapshot file names
	if strings.ContainsAny(metric, `_/\*?[`) {
		return errors.New("metric must not contain underscores, path separators or glob characters")
	}

	return nil
}

// ValidateSeriesKey validates every file-name component of a series.
func ValidateSeriesKey(hostname, itemID, metric string) error {
	if err := ValidateHostname(hostname); err != nil {
		return err
	}
	if err := ValidateItemID(itemID); err != nil {
		return err
	}
	return ValidateMetric(metric)
}
