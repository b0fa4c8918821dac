package preql

import (
	"context"

	"github.com/Velocidex/ordereddict"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
)

// hostValue converts an evaluation result for the caller. Collections stay
// lazy behind a Promise; indexed rows and lazy scalars are localized now.
func (s *Session) hostValue(ctx context.Context, inst objects.Instance) (interface{}, error) {
	switch v := inst.(type) {
	case nil:
		return nil, nil
	case *objects.Collection:
		if v.Single {
			return s.state.CastToHost(ctx, v)
		}
		return &Promise{sess: s, coll: v}, nil
	case *objects.Scalar:
		return s.state.CastToHost(ctx, v)
	case *objects.Function:
		return v, nil
	}
	return nil, diagnostics.New(diagnostics.TypeError, "cannot convert %s to a host value", inst.Type())
}

// instance converts a host value into a Preql value.
func (s *Session) instance(v interface{}) (objects.Instance, error) {
	switch x := v.(type) {
	case *Promise:
		if x.sess != s {
			return nil, diagnostics.New(diagnostics.ValueError, "promise belongs to another session")
		}
		return x.coll, nil
	case objects.Instance:
		return x, nil
	case *ordereddict.Dict:
		return &objects.Scalar{T: objects.TypeOf(x), Value: x}, nil
	}
	hv, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return objects.NewScalar(hv), nil
}

// normalize maps Go values onto the host representation: int64, float64,
// string, bool, nil and []interface{}.
func normalize(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []string:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, diagnostics.New(diagnostics.TypeError, "cannot use a value of type %T in preql", v)
}
