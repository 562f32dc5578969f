package objidx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/objidx/expr"
)

type person struct {
	Name    string
	Age     int
	Score   float64
	Active  bool
	Nick    *string
	Country string `objidx:"country"`
	Secret  string `objidx:"-"`
	Inner
	private int
}

type Inner struct {
	Level uint8
}

func personAge(p *person) any { return p.Age * 2 }

func TestNewSchema(t *testing.T) {
	scm, err := NewSchema(ByName("Name", String), ByAttr("Age", Int64), ByKey("k", Bool))
	require.NoError(t, err)
	assert.Equal(t, 3, scm.Len())
	assert.Equal(t, []string{"Name", "Age", "k"}, scm.Names())
	assert.Equal(t, 1, scm.Pos("Age"))
	assert.Equal(t, -1, scm.Pos("nope"))

	f, ok := scm.FieldNamed("k")
	require.True(t, ok)
	assert.Equal(t, Bool, f.Type)
	assert.Equal(t, ExtractKey, f.Extractor.Kind)

	col, kind, ok := scm.Resolve("Age")
	assert.True(t, ok)
	assert.Equal(t, 1, col)
	assert.Equal(t, expr.KindInt64, kind)
}

func TestNewSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty", nil},
		{"bad type", []Field{ByName("x", Type(42))}},
		{"zero type", []Field{{Name: "x", Extractor: Extractor{Kind: ExtractByName, Name: "x"}}}},
		{"no extractor", []Field{{Name: "x", Type: Int64}}},
		{"nil func", []Field{ByNamedFunc[*person]("x", Int64, nil)}},
		{"empty name", []Field{ByName("", Int64)}},
		{"bad name", []Field{ByKey("a b", Int64)}},
		{"keyword name", []Field{ByKey("and", Int64)}},
		{"duplicate", []Field{ByName("x", Int64), ByKey("x", String)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.fields...)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestByFuncName(t *testing.T) {
	f := ByFunc(personAge, Int64)
	assert.Equal(t, "personAge", f.Name)

	v, err := extract(&person{Age: 21}, f)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(42), v)

	// wrong record type yields null, not a panic
	v, err = extract(map[string]any{}, f)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestExtractStruct(t *testing.T) {
	nick := "bobby"
	p := &person{Name: "Bob", Age: 30, Score: 1.5, Active: true, Nick: &nick, Country: "NO", Secret: "s", Inner: Inner{Level: 3}}
	scm, err := NewSchema(
		ByName("Name", String),
		ByName("Age", Int64),
		ByName("Score", Float64),
		ByName("Active", Bool),
		ByName("Nick", String),
		ByName("country", String),
		ByName("Secret", String),
		ByName("Level", Int64),
		ByName("Missing", Float64),
		ByKey("Name2", String),
	)
	require.NoError(t, err)
	vals, err := scm.project(p)
	require.NoError(t, err)
	assert.Equal(t, []expr.Value{
		expr.String("Bob"),
		expr.Int(30),
		expr.Float(1.5),
		expr.Bool(true),
		expr.String("bobby"),
		expr.String("NO"),
		expr.Null,
		expr.Int(3),
		expr.Null,
		expr.Null,
	}, vals)

	p.Nick = nil
	v, err := scm.Extract(p, "Nick")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = scm.Extract(p, "zzz")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExtractMap(t *testing.T) {
	scm, err := NewSchema(ByName("x", Int64), ByKey("y", Float64), ByAttr("z", String))
	require.NoError(t, err)

	vals, err := scm.project(map[string]any{"x": 3, "y": 2, "z": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, []expr.Value{expr.Int(3), expr.Float(2), expr.Null}, vals)

	vals, err = scm.project(map[string]any{"y": math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, []expr.Value{expr.Null, expr.Null, expr.Null}, vals)

	vals, err = scm.project(map[string]float64{"x": 4, "y": 0.5})
	require.NoError(t, err)
	assert.Equal(t, []expr.Value{expr.Int(4), expr.Float(0.5), expr.Null}, vals)
}

func TestExtractTypeMismatch(t *testing.T) {
	tests := []struct {
		typ Type
		val any
	}{
		{Int64, "3"},
		{Int64, 2.5},
		{Int64, uint64(math.MaxUint64)},
		{Float64, true},
		{Bool, 1},
		{String, 1},
	}
	for _, tt := range tests {
		_, err := extract(map[string]any{"x": tt.val}, ByKey("x", tt.typ))
		assert.ErrorIs(t, err, ErrTypeMismatch, "%v from %T", tt.typ, tt.val)
	}
}

func TestIndexSpecs(t *testing.T) {
	scm, err := NewSchema(ByName("a", Int64), ByName("b", String))
	require.NoError(t, err)

	specs, err := scm.indexSpecs(nil)
	require.NoError(t, err)
	assert.Equal(t, []IndexSpec{{"a", []int{0}}, {"b", []int{1}}}, specs)

	specs, err = scm.indexSpecs([][]string{})
	require.NoError(t, err)
	assert.Empty(t, specs)

	specs, err = scm.indexSpecs([][]string{{"b", "a"}, {"a"}, {"b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, []IndexSpec{{"b,a", []int{1, 0}}, {"a", []int{0}}}, specs)

	_, err = scm.indexSpecs([][]string{{"a", "c"}})
	assert.ErrorIs(t, err, ErrInvalidSchema)
	_, err = scm.indexSpecs([][]string{{}})
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestOverridesStruct(t *testing.T) {
	p := &person{Name: "Ann", Age: 20}
	as, err := prepareOverrides(p, map[string]any{"Age": int64(21), "Name": "Anna", "Nick": "an", "country": "SE"})
	require.NoError(t, err)
	undo := applyOverrides(as)
	assert.Equal(t, 21, p.Age)
	assert.Equal(t, "Anna", p.Name)
	require.NotNil(t, p.Nick)
	assert.Equal(t, "an", *p.Nick)
	assert.Equal(t, "SE", p.Country)

	undo()
	assert.Equal(t, 20, p.Age)
	assert.Equal(t, "Ann", p.Name)
	assert.Nil(t, p.Nick)
	assert.Equal(t, "", p.Country)
}

func TestOverridesErrors(t *testing.T) {
	p := &person{}
	_, err := prepareOverrides(p, map[string]any{"Nope": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = prepareOverrides(p, map[string]any{"private": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = prepareOverrides(p, map[string]any{"Age": "x"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = prepareOverrides(p, map[string]any{"Age": 1.5})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = prepareOverrides(p, map[string]any{"Level": 300})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = prepareOverrides(p, map[string]any{"Name": nil})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = prepareOverrides(map[string]int{}, map[string]any{"x": "y"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = prepareOverrides(map[int]any{}, map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestOverridesMap(t *testing.T) {
	m := map[string]any{"x": 1}
	as, err := prepareOverrides(m, map[string]any{"x": 2, "y": nil, "z": "new"})
	require.NoError(t, err)
	undo := applyOverrides(as)
	assert.Equal(t, map[string]any{"x": 2, "y": nil, "z": "new"}, m)
	undo()
	assert.Equal(t, map[string]any{"x": 1}, m)
}
