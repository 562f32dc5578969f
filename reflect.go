package objidx

import (
	"reflect"
	"strings"
	"sync"
)

var typeInfoCache sync.Map

const structTagName = "objidx"

type structInfo struct {
	fields map[string][]int // attribute name -> field index path
}

func reflectStruct(typ reflect.Type) *structInfo {
	if v, ok := typeInfoCache.Load(typ); ok {
		return v.(*structInfo)
	}
	info := reflectStructWithoutCache(typ)
	actual, _ := typeInfoCache.LoadOrStore(typ, info)
	return actual.(*structInfo)
}

func reflectStructWithoutCache(typ reflect.Type) *structInfo {
	info := &structInfo{fields: make(map[string][]int)}
	for _, sf := range reflect.VisibleFields(typ) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup(structTagName); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if _, dup := info.fields[name]; dup {
			continue
		}
		info.fields[name] = sf.Index
	}
	return info
}

// attr returns the addressable struct field for name, or an invalid Value.
// Embedded pointers that are nil yield an invalid Value as well.
func (si *structInfo) attr(structVal reflect.Value, name string) reflect.Value {
	path, ok := si.fields[name]
	if !ok {
		return reflect.Value{}
	}
	v, err := structVal.FieldByIndexErr(path)
	if err != nil {
		return reflect.Value{}
	}
	return v
}

// indirect follows pointers and interfaces. ok is false for nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}
