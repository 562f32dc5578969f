package objidx

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/andreyvit/objidx/expr"
)

// Type is the semantic type of an indexed field.
type Type int

const (
	Int64 Type = iota + 1
	Float64
	Bool
	String
)

func (t Type) Kind() expr.Kind {
	switch t {
	case Int64:
		return expr.KindInt64
	case Float64:
		return expr.KindFloat64
	case Bool:
		return expr.KindBool
	case String:
		return expr.KindString
	default:
		return expr.KindNull
	}
}

func (t Type) valid() bool {
	return t >= Int64 && t <= String
}

func (t Type) String() string {
	if t.valid() {
		return t.Kind().String()
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

type ExtractorKind int

const (
	extractInvalid ExtractorKind = iota
	// ExtractByName reads a struct attribute or a map key, whichever the record has.
	ExtractByName
	ExtractAttr
	ExtractKey
	ExtractFunc
)

// Extractor says how to obtain a field value from a record.
type Extractor struct {
	Kind ExtractorKind
	Name string
	Func func(record any) any
}

type Field struct {
	Name      string
	Type      Type
	Extractor Extractor
}

func ByName(name string, typ Type) Field {
	return Field{name, typ, Extractor{Kind: ExtractByName, Name: name}}
}

func ByAttr(name string, typ Type) Field {
	return Field{name, typ, Extractor{Kind: ExtractAttr, Name: name}}
}

func ByKey(name string, typ Type) Field {
	return Field{name, typ, Extractor{Kind: ExtractKey, Name: name}}
}

// ByFunc defines a computed field named after fn. Closures get synthetic
// names like func1; use ByNamedFunc for those.
func ByFunc[T any](fn func(T) any, typ Type) Field {
	return ByNamedFunc(funcName(fn), typ, fn)
}

func ByNamedFunc[T any](name string, typ Type, fn func(T) any) Field {
	var f func(any) any
	if fn != nil {
		f = func(record any) any {
			r, ok := record.(T)
			if !ok {
				return nil
			}
			return fn(r)
		}
	}
	return Field{name, typ, Extractor{Kind: ExtractFunc, Name: name, Func: f}}
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	name := rf.Name()
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// Schema is the immutable, ordered set of indexed fields.
type Schema struct {
	fields []Field
	byName map[string]int
}

func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fieldErrf("", -1, ErrInvalidSchema, "need a nonempty list of fields, such as ByName(\"x\", Float64)")
	}
	scm := &Schema{
		fields: make([]Field, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if !f.Type.valid() {
			return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "expected Int64, Float64, Bool or String type, got %v", f.Type)
		}
		switch f.Extractor.Kind {
		case ExtractByName, ExtractAttr, ExtractKey:
			if f.Extractor.Name == "" {
				return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "extractor needs an attribute or key name")
			}
		case ExtractFunc:
			if f.Extractor.Func == nil {
				return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "extractor function is nil")
			}
		default:
			return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "field must be a name or a function")
		}
		if !expr.IsIdent(f.Name) {
			return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "field name must be an identifier")
		}
		if _, dup := scm.byName[f.Name]; dup {
			return nil, fieldErrf(f.Name, i, ErrInvalidSchema, "duplicate field")
		}
		scm.byName[f.Name] = i
		scm.fields = append(scm.fields, f)
	}
	return scm, nil
}

func (scm *Schema) Len() int {
	return len(scm.fields)
}

func (scm *Schema) Fields() []Field {
	return append([]Field(nil), scm.fields...)
}

func (scm *Schema) Field(i int) Field {
	return scm.fields[i]
}

func (scm *Schema) FieldNamed(name string) (Field, bool) {
	i, ok := scm.byName[name]
	if !ok {
		return Field{}, false
	}
	return scm.fields[i], true
}

func (scm *Schema) Pos(name string) int {
	if i, ok := scm.byName[name]; ok {
		return i
	}
	return -1
}

func (scm *Schema) Names() []string {
	names := make([]string, len(scm.fields))
	for i, f := range scm.fields {
		names[i] = f.Name
	}
	return names
}

// Resolve implements expr.Resolver.
func (scm *Schema) Resolve(name string) (int, expr.Kind, bool) {
	i, ok := scm.byName[name]
	if !ok {
		return 0, expr.KindNull, false
	}
	return i, scm.fields[i].Type.Kind(), true
}

// IndexSpec names the columns of one composite secondary index.
type IndexSpec struct {
	Name    string
	Columns []int
}

// indexSpecs resolves Options.Indices. nil means one single-column index per
// field; an empty non-nil list means no indices.
func (scm *Schema) indexSpecs(indices [][]string) ([]IndexSpec, error) {
	if indices == nil {
		specs := make([]IndexSpec, len(scm.fields))
		for i, f := range scm.fields {
			specs[i] = IndexSpec{Name: f.Name, Columns: []int{i}}
		}
		return specs, nil
	}
	specs := make([]IndexSpec, 0, len(indices))
	seen := make(map[string]bool, len(indices))
	for i, cols := range indices {
		if len(cols) == 0 {
			return nil, fieldErrf("", i, ErrInvalidSchema, "index %d has no columns", i)
		}
		spec := IndexSpec{Name: strings.Join(cols, ",")}
		for _, name := range cols {
			pos := scm.Pos(name)
			if pos < 0 {
				return nil, fieldErrf(name, i, ErrInvalidSchema, "index %d refers to a field that is not in the schema", i)
			}
			spec.Columns = append(spec.Columns, pos)
		}
		if seen[spec.Name] {
			continue
		}
		seen[spec.Name] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

func (spec IndexSpec) String() string {
	return fmt.Sprintf("idx_%s%v", spec.Name, spec.Columns)
}
