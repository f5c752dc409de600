package docstore

import (
	"fmt"
	"reflect"
)

// apply merges u into doc in place, with the semantics MongoStore gets from
// $set and $addToSet.
func apply(doc Document, u Update) error {
	for k, v := range u.Set {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = nv
	}
	for k, values := range u.Union {
		var current []any
		switch existing := doc[k].(type) {
		case nil:
		case []any:
			current = existing
		default:
			return fmt.Errorf("field %q is not an array", k)
		}
		for _, v := range values {
			nv, err := normalize(v)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			if !containsValue(current, nv) {
				current = append(current, nv)
			}
		}
		if current == nil {
			current = []any{}
		}
		doc[k] = current
	}
	return nil
}

func containsValue(list []any, v any) bool {
	for _, x := range list {
		if reflect.DeepEqual(x, v) {
			return true
		}
	}
	return false
}
