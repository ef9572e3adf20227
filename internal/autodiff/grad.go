package autodiff

import "fmt"

type gradConfig struct {
	createGraph bool
	allowUnused bool
}

// GradOption configures Grad.
type GradOption func(*gradConfig)

// WithCreateGraph keeps the returned gradients attached to the computation
// graph so that they can be differentiated again.
func WithCreateGraph() GradOption {
	return func(c *gradConfig) {
		c.createGraph = true
	}
}

// WithAllowUnused returns zero gradients for inputs the output does not
// depend on, including every input of an untracked output, instead of
// failing. Output biases, for example, never reach a loss on the gradient
// of a potential.
func WithAllowUnused() GradOption {
	return func(c *gradConfig) {
		c.allowUnused = true
	}
}

// Grad returns dy/dw for every w in wrt. y must be 1x1; every w must track
// gradients and be reachable from y. Each result has the shape of its w.
func Grad(y *Tensor, wrt []*Tensor, opts ...GradOption) ([]*Tensor, error) {
	var cfg gradConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if r, c := y.Dims(); r != 1 || c != 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrNotScalar, r, c)
	}
	for i, w := range wrt {
		if !w.tracked {
			return nil, fmt.Errorf("%w: input %d", ErrNoGrad, i)
		}
	}
	if !y.tracked && !cfg.allowUnused {
		return nil, fmt.Errorf("%w: output", ErrNoGrad)
	}

	order := topoOrder(y)
	grads := make(map[*Tensor]*Tensor)
	if y.tracked {
		grads[y] = Ones(1, 1)
	}

	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		g, ok := grads[t]
		if !ok || t.node == nil {
			continue
		}
		inGrads, err := t.node.backward(g)
		if err != nil {
			return nil, fmt.Errorf("backward %s: %w", t.node.op, err)
		}
		for k, in := range t.node.inputs {
			if !in.tracked || inGrads[k] == nil {
				continue
			}
			if prev, ok := grads[in]; ok {
				sum, err := Add(prev, inGrads[k])
				if err != nil {
					return nil, fmt.Errorf("accumulate %s: %w", t.node.op, err)
				}
				grads[in] = sum
			} else {
				grads[in] = inGrads[k]
			}
		}
	}

	out := make([]*Tensor, len(wrt))
	for i, w := range wrt {
		g, ok := grads[w]
		if !ok {
			if !cfg.allowUnused {
				return nil, fmt.Errorf("%w: input %d", ErrUnused, i)
			}
			r, c := w.Dims()
			out[i] = Zeros(r, c)
			continue
		}
		if !cfg.createGraph {
			g = g.Detach()
		}
		out[i] = g
	}
	return out, nil
}

// topoOrder lists the tracked tensors y depends on, inputs before outputs.
func topoOrder(y *Tensor) []*Tensor {
	var order []*Tensor
	seen := make(map[*Tensor]bool)
	var visit func(t *Tensor)
	visit = func(t *Tensor) {
		if seen[t] || !t.tracked {
			return
		}
		seen[t] = true
		if t.node != nil {
			for _, in := range t.node.inputs {
				visit(in)
			}
		}
		order = append(order, t)
	}
	visit(y)
	return order
}
