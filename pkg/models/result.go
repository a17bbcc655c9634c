package models

import (
	"errors"
)

// ErrContractViolation marks configuration or programming errors that must
// abort the run instead of being skipped.
var ErrContractViolation = errors.New("contract violation")

type UnitStatus string

const (
	UnitWritten UnitStatus = "written"
	UnitSkipped UnitStatus = "skipped"
	UnitFailed  UnitStatus = "failed"
)

// UnitResult is the outcome of one load, one merge of a pair metric, or one forecast.
type UnitResult struct {
	Unit   string     `json:"unit"`
	Status UnitStatus `json:"status"`
	Path   string     `json:"path,omitempty"`
	Err    error      `json:"-"`
}

// Classify maps an error returned by a unit of work onto its result.
func Classify(unit string, err error) UnitResult {
	switch {
	case err == nil:
		return UnitResult{Unit: unit, Status: UnitWritten}
	case errors.Is(err, ErrContractViolation):
		return UnitResult{Unit: unit, Status: UnitFailed, Err: err}
	default:
		return UnitResult{Unit: unit, Status: UnitSkipped, Err: err}
	}
}

func Written(unit, path string) UnitResult {
	return UnitResult{Unit: unit, Status: UnitWritten, Path: path}
}

func (r UnitResult) Failed() bool {
	return r.Status == UnitFailed
}

func (r UnitResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// FirstFailure returns the first contract violation among results, if any.
func FirstFailure(results []UnitResult) error {
	for _, r := range results {
		if r.Failed() {
			return r.Err
		}
	}
	return nil
}
