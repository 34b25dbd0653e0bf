package line

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/citybuilder/pkg/geom"
)

// ValidationSeverity indicates whether a finding means the line is broken
// or merely odd.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken invariant
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	BuildingID uuid.UUID // zero for line-level findings
	Message    string
	Severity   ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.BuildingID == uuid.Nil {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] building %s: %s", e.Severity, e.BuildingID.String()[:8], e.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// Validate checks the building list of l against its points: every
// building uses points of the line, the list is sorted, neighbouring
// buildings share their boundary point, and together they cover the whole
// line (or the whole loop). It never mutates l.
func Validate(l *Line) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateMembership(l)...)
	errs = append(errs, validateOrder(l)...)
	errs = append(errs, validateTiling(l)...)
	errs = append(errs, validateShapes(l)...)
	return errs
}

// ValidateAll runs Validate and splits the findings by severity.
func ValidateAll(l *Line) ValidationResult {
	var res ValidationResult
	for _, e := range Validate(l) {
		if e.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, e)
		} else {
			res.Errors = append(res.Errors, e)
		}
	}
	return res
}

func validateMembership(l *Line) []ValidationError {
	var errs []ValidationError
	for _, b := range l.buildings {
		if b.Deleted() {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    "deleted building still listed",
				Severity:   SeverityError,
			})
		}
		if l.IndexOf(b.FirstPoint) < 0 || l.IndexOf(b.LastPoint) < 0 {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    "building references a point outside the line",
				Severity:   SeverityError,
			})
		}
	}
	return errs
}

func validateOrder(l *Line) []ValidationError {
	var errs []ValidationError
	for i := 1; i < len(l.buildings); i++ {
		a, b := l.buildings[i-1], l.buildings[i]
		if l.IndexOf(a.FirstPoint) > l.IndexOf(b.FirstPoint) {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    fmt.Sprintf("building %d starts before building %d", i, i-1),
				Severity:   SeverityError,
			})
		}
	}
	return errs
}

func validateTiling(l *Line) []ValidationError {
	var errs []ValidationError
	if len(l.points) < 2 {
		if len(l.buildings) > 0 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("%d buildings on a line of %d points", len(l.buildings), len(l.points)),
				Severity: SeverityError,
			})
		}
		return errs
	}
	split := l.SplitPoints()
	want := len(split) - 1
	if l.looping() {
		want++
	}
	if len(l.buildings) != want {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("%d buildings for %d spans", len(l.buildings), want),
			Severity: SeverityError,
		})
	}
	if len(l.buildings) == 0 {
		return errs
	}
	for i := 1; i < len(l.buildings); i++ {
		a, b := l.buildings[i-1], l.buildings[i]
		if a.LastPoint != b.FirstPoint {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    "gap or overlap with the previous building",
				Severity:   SeverityError,
			})
		}
	}
	first, last := l.buildings[0], l.buildings[len(l.buildings)-1]
	if first.FirstPoint != l.points[0] {
		errs = append(errs, ValidationError{
			BuildingID: first.ID,
			Message:    "first building does not start at the first point",
			Severity:   SeverityError,
		})
	}
	end := l.points[len(l.points)-1]
	if l.looping() {
		end = l.points[0]
	}
	if last.LastPoint != end {
		errs = append(errs, ValidationError{
			BuildingID: last.ID,
			Message:    "last building does not close the line",
			Severity:   SeverityError,
		})
	}
	return errs
}

func validateShapes(l *Line) []ValidationError {
	var errs []ValidationError
	for _, b := range l.buildings {
		if b.FirstPoint == nil || b.LastPoint == nil {
			continue
		}
		if geom.Equal(b.FirstPoint.Position(), b.LastPoint.Position()) {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    "building starts and ends at the same position",
				Severity:   SeverityWarning,
			})
		}
		if b.Spline != nil && len(b.Spline) < 2 {
			errs = append(errs, ValidationError{
				BuildingID: b.ID,
				Message:    "building spline is too short to build walls",
				Severity:   SeverityWarning,
			})
		}
	}
	return errs
}
