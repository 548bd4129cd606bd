package pipeline

import (
	"fmt"

	"go.uber.org/multierr"
)

// Kind classifies what went wrong in a pipeline.
type Kind int

const (
	// DataQuality marks malformed or implausible input which was recovered
	// from locally.
	DataQuality Kind = iota
	// InsufficientData marks an entity without enough data for a result.
	InsufficientData
	// ConfigurationMissing marks a missing or empty catalog.
	ConfigurationMissing
	// PartialCoverage marks a run where not every required account was
	// loaded.
	PartialCoverage
	// SourceFailure marks a collaborator which failed to deliver data.
	SourceFailure
)

func (k Kind) String() string {
	switch k {
	case DataQuality:
		return "data quality"
	case InsufficientData:
		return "insufficient data"
	case ConfigurationMissing:
		return "configuration missing"
	case PartialCoverage:
		return "partial coverage"
	case SourceFailure:
		return "source failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Pipeline names.
const (
	Returns    = "returns"
	Allocation = "allocation"
)

// Failure is a problem in one pipeline, optionally for one entity.
type Failure struct {
	Pipeline string
	Entity   string
	Kind     Kind
	Err      error
}

func (f Failure) Error() string {
	if f.Entity == "" {
		return fmt.Sprintf("%s: %s: %v", f.Pipeline, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s: %v", f.Pipeline, f.Entity, f.Kind, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Failures is a list of failures.
type Failures []Failure

// Err combines the failures into one error, or returns nil.
func (fs Failures) Err() error {
	var err error
	for _, f := range fs {
		err = multierr.Append(err, f)
	}
	return err
}

// Of returns the failures of a pipeline.
func (fs Failures) Of(pipeline string) Failures {
	var res Failures
	for _, f := range fs {
		if f.Pipeline == pipeline {
			res = append(res, f)
		}
	}
	return res
}
