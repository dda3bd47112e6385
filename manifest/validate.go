package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalid is returned when a manifest does not match the schema.
var ErrInvalid = errors.New("manifest does not match schema")

//go:embed schema.cue
var schemaSource string

// A cue.Context is not safe for concurrent use.
type schema struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

var loadSchema = sync.OnceValues(func() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	return &schema{ctx: ctx, def: v.LookupPath(cue.ParsePath("#Manifest"))}, nil
})

// Validate checks m, after defaults, against the embedded CUE schema.
func (m *Manifest) Validate() error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := s.def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
