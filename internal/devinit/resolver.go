package devinit

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// resolveArgs substitutes every reference in args with the device it names.
func (rc *resolution) resolveArgs(ctx context.Context, dependent string, args Map) (Args, error) {
	resolved, err := rc.resolveMap(ctx, dependent, args)
	if err != nil {
		return nil, err
	}
	return Args(resolved), nil
}

func (rc *resolution) resolveArg(ctx context.Context, dependent string, arg Arg) (any, error) {
	switch a := arg.(type) {
	case nil:
		return nil, nil
	case Scalar:
		return a.Value, nil
	case Ref:
		dev, err := rc.await(ctx, dependent, a.Target)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case List:
		return rc.resolveList(ctx, dependent, a)
	case Map:
		return rc.resolveMap(ctx, dependent, a)
	default:
		return nil, fmt.Errorf("unsupported argument node %T", arg)
	}
}

// resolveList resolves all elements concurrently and keeps their order.
func (rc *resolution) resolveList(ctx context.Context, dependent string, list List) ([]any, error) {
	out := make([]any, len(list))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range list {
		g.Go(func() error {
			v, err := rc.resolveArg(gctx, dependent, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveMap resolves all values concurrently. Reserved keys pass through.
func (rc *resolution) resolveMap(ctx context.Context, dependent string, m Map) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([]any, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		if IsReserved(key) {
			values[i] = Plain(m[key])
			continue
		}
		g.Go(func() error {
			v, err := rc.resolveArg(gctx, dependent, m[key])
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(keys))
	for i, key := range keys {
		out[key] = values[i]
	}
	return out, nil
}
