package types

import (
	"github.com/nosyt-lien/preql/internal/diagnostics"
)

// IsSubtype reports whether a value of type a may be used where b is
// expected. The relation is reflexive and transitive.
func IsSubtype(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	if bp, ok := b.(*Primitive); ok && bp.Name == Any.Name {
		return true
	}

	switch at := a.(type) {
	case *Primitive:
		bp, ok := b.(*Primitive)
		if !ok {
			return false
		}
		return primitiveSubtype(at.Name, bp.Name)

	case *Collection:
		bc, ok := b.(*Collection)
		if !ok {
			return false
		}
		if bc.Ordered && !at.Ordered {
			return false
		}
		return IsSubtype(at.Elem, bc.Elem)

	case *Struct:
		bs, ok := b.(*Struct)
		if !ok {
			return false
		}
		for _, bf := range bs.Fields {
			af, ok := at.Field(bf.Name)
			if !ok || !IsSubtype(af, bf.Type) {
				return false
			}
		}
		return true

	case *Relation:
		if br, ok := b.(*Relation); ok {
			return at.Backref == br.Backref && at.TargetName == br.TargetName && IsSubtype(at.Target, br.Target)
		}
		// A relation navigates to its target table.
		return at.Target != nil && IsSubtype(at.Target, b)

	case *Function:
		bf, ok := b.(*Function)
		if !ok || len(at.Params) != len(bf.Params) {
			return false
		}
		for i := range at.Params {
			if !IsSubtype(bf.Params[i].Type, at.Params[i].Type) {
				return false
			}
		}
		return IsSubtype(at.Return, bf.Return)
	}
	return false
}

func primitiveSubtype(a, b string) bool {
	if a == b {
		return true
	}
	switch a {
	case Null.Name:
		return b == Int.Name || b == Float.Name || b == String.Name || b == Bool.Name
	case Int.Name:
		return b == Float.Name
	}
	return false
}

// Join returns the least common supertype of a and b. It fails with a
// TypeError when the only common supertype is any.
func Join(a, b Type) (Type, error) {
	if IsSubtype(a, b) {
		return b, nil
	}
	if IsSubtype(b, a) {
		return a, nil
	}

	switch at := a.(type) {
	case *Primitive:
		if IsNumeric(a) && IsNumeric(b) {
			return Float, nil
		}
		// null joins upwards through its only supertypes.
		if at.Name == Null.Name {
			return b, nil
		}
		if bp, ok := b.(*Primitive); ok && bp.Name == Null.Name {
			return a, nil
		}

	case *Collection:
		if bc, ok := b.(*Collection); ok {
			elem, err := Join(at.Elem, bc.Elem)
			if err != nil {
				return nil, err
			}
			return &Collection{Elem: elem, Ordered: at.Ordered && bc.Ordered}, nil
		}

	case *Struct:
		if bs, ok := b.(*Struct); ok {
			var fields []Field
			for _, af := range at.Fields {
				bt, ok := bs.Field(af.Name)
				if !ok {
					continue
				}
				ft, err := Join(af.Type, bt)
				if err != nil {
					continue
				}
				fields = append(fields, Field{Name: af.Name, Type: ft})
			}
			return NewStruct(fields...), nil
		}
	}

	return nil, diagnostics.New(diagnostics.TypeError, "no common type for %s and %s", a, b)
}

// JoinAll folds Join over ts. An empty list joins to any.
func JoinAll(ts ...Type) (Type, error) {
	if len(ts) == 0 {
		return Any, nil
	}
	acc := ts[0]
	for _, t := range ts[1:] {
		j, err := Join(acc, t)
		if err != nil {
			return nil, err
		}
		acc = j
	}
	return acc, nil
}
