package catalog

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/swipepad/internal/domain"
)

//go:embed schema.cue
var schemaSource string

// validator checks project records against the #Project definition.
type validator struct {
	ctx    *cue.Context
	schema cue.Value
}

func newValidator() (*validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#Project"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Project: %w", err)
	}
	return &validator{ctx: ctx, schema: schema}, nil
}

// validate unifies p with the schema. Index i is reported in the error.
func (v *validator) validate(i int, p domain.Project) error {
	rec := v.ctx.Encode(p)
	if err := rec.Err(); err != nil {
		return &RecordError{Index: i, ID: p.ID, Message: err.Error()}
	}
	if err := v.schema.Unify(rec).Validate(cue.Concrete(true)); err != nil {
		return &RecordError{Index: i, ID: p.ID, Message: firstCUEError(err)}
	}
	return nil
}

// firstCUEError reduces a CUE error list to its first message.
func firstCUEError(err error) string {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}

// RecordError reports an invalid catalog record.
type RecordError struct {
	Index   int
	ID      string
	Message string
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("project %d (%s): %s", e.Index, e.ID, e.Message)
	}
	return fmt.Sprintf("project %d: %s", e.Index, e.Message)
}
