// =============================================================================
// Freight Survey Ingest - Validation and Diagnostics
// =============================================================================
//
// This module collects non-fatal diagnostics produced while reading and
// classifying survey files. Nothing here aborts processing: malformed rows,
// missing columns and unrecognized files are recorded as issues and
// reported alongside the per-file result.
//
// ERROR HANDLING:
//   - Issues are collected, not returned as errors
//   - Each issue carries file, row and field context
//   - Severity "warning" keeps the file in the batch; "error" excludes the
//     affected unit (row or file) but never the rest of the batch
//
// It also wraps go-playground/validator for struct-tag validation of
// configuration and query options.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity classifies an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// =============================================================================
// ISSUE
// =============================================================================

// Issue is a single non-fatal diagnostic.
type Issue struct {
	// Severity indicates whether the affected unit was excluded.
	Severity Severity `json:"severity"`

	// File is the base name of the source file.
	File string `json:"file"`

	// Row is the 1-based data row number, or 0 for file-level issues.
	Row int `json:"row,omitempty"`

	// Field is the column concerned, if any.
	Field string `json:"field,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(string(i.Severity)))
	b.WriteString("] ")
	if i.File != "" {
		b.WriteString(i.File)
		if i.Row > 0 {
			fmt.Fprintf(&b, ", row %d", i.Row)
		}
		b.WriteString(": ")
	}
	if i.Field != "" {
		fmt.Fprintf(&b, "field '%s': ", i.Field)
	}
	b.WriteString(i.Message)
	return b.String()
}

// =============================================================================
// REPORT
// =============================================================================

// Report accumulates issues for one file.
type Report struct {
	Issues []Issue
}

// Warn records a warning.
func (r *Report) Warn(file string, row int, field, format string, args ...interface{}) {
	r.add(SeverityWarning, file, row, field, fmt.Sprintf(format, args...))
}

// Fail records an error-severity issue.
func (r *Report) Fail(file string, row int, field, format string, args ...interface{}) {
	r.add(SeverityError, file, row, field, fmt.Sprintf(format, args...))
}

// Merge appends the issues of another report.
func (r *Report) Merge(other Report) {
	r.Issues = append(r.Issues, other.Issues...)
}

func (r *Report) add(sev Severity, file string, row int, field, msg string) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		File:     file,
		Row:      row,
		Field:    field,
		Message:  msg,
	})
}

// WarningCount returns the number of warnings.
func (r Report) WarningCount() int {
	return r.count(SeverityWarning)
}

// ErrorCount returns the number of error-severity issues.
func (r Report) ErrorCount() int {
	return r.count(SeverityError)
}

func (r Report) count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// Empty reports whether no issues were recorded.
func (r Report) Empty() bool {
	return len(r.Issues) == 0
}

// =============================================================================
// COLUMN CHECKS
// =============================================================================

// CheckColumns records a warning for every required column absent from
// headers.
func CheckColumns(report *Report, file string, headers, required []string) (missing int) {
	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	for _, col := range required {
		if _, ok := have[col]; !ok {
			report.Warn(file, 0, col, "required column missing")
			missing++
		}
	}
	return missing
}

// =============================================================================
// STRUCT VALIDATION
// =============================================================================

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Struct validates a struct against its `validate` tags. The returned error
// lists every failing field.
func Struct(v interface{}) error {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})

	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatIssues formats issues for display or logging.
func FormatIssues(issues []Issue) string {
	if len(issues) == 0 {
		return "No issues."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d issue(s):\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}
