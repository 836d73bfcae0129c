package research

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyTopic      = errors.New("topic cannot be empty")
	ErrFieldAlreadySet = errors.New("field already set")
	ErrUnknownField    = errors.New("unknown field")
	ErrMissingReport   = errors.New("no report to output")
)

// Field names one write-once slot of RunState.
type Field string

const (
	FieldAcademic Field = "academic"
	FieldNews     Field = "news"
	FieldIndustry Field = "industry"
	FieldReport   Field = "report"
	FieldOutput   Field = "output"
)

// Fields lists every optional field in RunState order.
var Fields = []Field{FieldAcademic, FieldNews, FieldIndustry, FieldReport, FieldOutput}

// RunState is the record threaded through one run. Topic is fixed at
// creation; every other field is written at most once, by its owning step.
type RunState struct {
	ID       uuid.UUID `json:"id"`
	Topic    string    `json:"topic"`
	Academic *string   `json:"academic,omitempty"`
	News     *string   `json:"news,omitempty"`
	Industry *string   `json:"industry,omitempty"`
	Report   *string   `json:"report,omitempty"`
	Output   *string   `json:"output,omitempty"`
}

func NewRunState(topic string) *RunState {
	return &RunState{ID: uuid.New(), Topic: topic}
}

func (s *RunState) slot(f Field) (**string, error) {
	switch f {
	case FieldAcademic:
		return &s.Academic, nil
	case FieldNews:
		return &s.News, nil
	case FieldIndustry:
		return &s.Industry, nil
	case FieldReport:
		return &s.Report, nil
	case FieldOutput:
		return &s.Output, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
}

func (s *RunState) Get(f Field) (string, bool) {
	p, err := s.slot(f)
	if err != nil || *p == nil {
		return "", false
	}
	return **p, true
}

// Set populates f. A second write to the same field is rejected.
func (s *RunState) Set(f Field, value string) error {
	p, err := s.slot(f)
	if err != nil {
		return err
	}
	if *p != nil {
		return fmt.Errorf("%w: %s", ErrFieldAlreadySet, f)
	}
	*p = &value
	return nil
}

// Populated returns the fields that hold a value, in RunState order.
func (s *RunState) Populated() []Field {
	var out []Field
	for _, f := range Fields {
		if _, ok := s.Get(f); ok {
			out = append(out, f)
		}
	}
	return out
}

// Inputs is the read-only view a step receives: the topic plus the fields
// written by the steps it depends on, nothing else.
type Inputs struct {
	Topic  string
	values map[Field]string
}

func (in Inputs) Get(f Field) (string, bool) {
	v, ok := in.values[f]
	return v, ok
}

// GetOr returns the field value, or def when the field is absent or blank.
func (in Inputs) GetOr(f Field, def string) string {
	if v, ok := in.values[f]; ok && v != "" {
		return v
	}
	return def
}

// StepError reports the step that aborted a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s failed: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }
