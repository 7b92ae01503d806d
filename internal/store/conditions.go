package store

import (
	"reflect"
	"strings"
)

// Condition is a write precondition. Backends either translate it into their
// own expression language or evaluate it with Evaluate.
type Condition interface {
	condition()
}

type (
	attrExists struct {
		name   string
		exists bool
	}
	equal struct {
		name  string
		value any
	}
	lessThan struct {
		name  string
		value any
	}
	and struct{ conds []Condition }
	or  struct{ conds []Condition }
)

func (attrExists) condition() {}
func (equal) condition()      {}
func (lessThan) condition()   {}
func (and) condition()        {}
func (or) condition()         {}

func AttributeExists(name string) Condition    { return attrExists{name: name, exists: true} }
func AttributeNotExists(name string) Condition { return attrExists{name: name} }
func Equal(name string, value any) Condition   { return equal{name: name, value: normalize(value)} }

// LessThan compares strings lexically and numbers numerically. Mixed types
// never satisfy it.
func LessThan(name string, value any) Condition { return lessThan{name: name, value: normalize(value)} }

func And(conds ...Condition) Condition { return and{conds: conds} }
func Or(conds ...Condition) Condition  { return or{conds: conds} }

// Evaluate reports whether cond holds for existing. A nil existing item is
// treated as having no attributes. A nil cond always holds.
func Evaluate(cond Condition, existing Item) bool {
	switch c := cond.(type) {
	case nil:
		return true
	case attrExists:
		_, ok := existing[c.name]
		return ok == c.exists
	case equal:
		v, ok := existing[c.name]
		return ok && reflect.DeepEqual(normalize(v), c.value)
	case lessThan:
		v, ok := existing[c.name]
		if !ok {
			return false
		}
		return less(normalize(v), c.value)
	case and:
		for _, sub := range c.conds {
			if !Evaluate(sub, existing) {
				return false
			}
		}
		return true
	case or:
		for _, sub := range c.conds {
			if Evaluate(sub, existing) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func less(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && strings.Compare(av, bv) < 0
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	}
	return false
}

// normalize folds Go numeric kinds into float64 so values written by callers
// compare equal to values read back from any backend.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
