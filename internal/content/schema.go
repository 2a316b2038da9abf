package content

import (
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// requiredFields cannot be repaired by dropping them.
var requiredFields = map[string]bool{"order": true}

// Validator checks chapter documents against the embedded #Chapter schema.
//
// Not safe for concurrent use; cue.Context is single-goroutine.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile chapter schema: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#Chapter"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Chapter: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Repair removes optional fields whose values do not match the schema from
// the chapter mapping node and returns their names. Missing or malformed
// optional fields are treated as absent rather than failing the chapter.
func (v *Validator) Repair(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	var dropped []string
	kept := node.Content[:0:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if !requiredFields[key.Value] && !v.fieldValid(key.Value, val) {
			dropped = append(dropped, key.Value)
			continue
		}
		kept = append(kept, key, val)
	}
	node.Content = kept
	sort.Strings(dropped)
	return dropped
}

func (v *Validator) fieldValid(name string, val *yaml.Node) bool {
	field := v.schema.LookupPath(cue.MakePath(cue.Str(name).Optional()))
	if !field.Exists() {
		// Unknown fields are reported by Validate.
		return true
	}
	var raw any
	if err := val.Decode(&raw); err != nil {
		return false
	}
	return field.Unify(v.ctx.Encode(raw)).Validate(cue.Concrete(true)) == nil
}

// Validate checks a chapter mapping node against #Chapter. The schema is
// closed, so unknown fields are errors.
func (v *Validator) Validate(source string, node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return &LoadError{Code: ErrCodeDecode, Source: source, Message: err.Error()}
	}
	if _, ok := raw.(map[string]any); !ok {
		return &LoadError{Code: ErrCodeLayout, Source: source, Message: "chapter must be a mapping"}
	}

	unified := v.schema.Unify(v.ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueError(ErrCodeSchema, source, err)
	}
	return nil
}

// CompileCUE evaluates a CUE book file and returns it as a YAML document
// node, so CUE books share the YAML decoding path.
func (v *Validator) CompileCUE(source string, data []byte) (*yaml.Node, error) {
	val := v.ctx.CompileBytes(data, cue.Filename(source))
	if err := val.Err(); err != nil {
		return nil, cueError(ErrCodeParse, source, err)
	}
	js, err := val.MarshalJSON()
	if err != nil {
		return nil, cueError(ErrCodeParse, source, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(js, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Source: source, Message: err.Error()}
	}
	return &doc, nil
}
