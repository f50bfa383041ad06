package system

import (
	"errors"
	"fmt"

	"github.com/hmclab/hamgeo/diff"
)

// ErrMissingDerivative indicates a required derivative function was
// neither supplied nor derivable because no differentiator was
// configured. It is fatal and raised at construction, never per call.
var ErrMissingDerivative = errors.New("system: required derivative not provided")

// ConfigError names the derivative missing at construction.
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("system: no differentiator available, %s must be provided", e.Name)
}

func (e *ConfigError) Unwrap() error { return ErrMissingDerivative }

// The resolve helpers turn an optional explicit derivative into a
// required function value once, at construction time.

func resolveGrad(explicit diff.GradFunc, f diff.Func, d diff.Differentiator, name string) (diff.GradFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.GradAndValue(f), nil
}

func resolveJacobian(explicit diff.JacobianFunc, f diff.VectorFunc, d diff.Differentiator, name string) (diff.JacobianFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.JacobianAndValue(f), nil
}

func resolveHessian(explicit diff.HessianFunc, f diff.Func, d diff.Differentiator, name string) (diff.HessianFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.HessianGradAndValue(f), nil
}

func resolveMTP(explicit diff.MTPFunc, f diff.Func, d diff.Differentiator, name string) (diff.MTPFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.MTPHessianGradAndValue(f), nil
}

func resolveMHP(explicit diff.MHPFunc, f diff.VectorFunc, d diff.Differentiator, name string) (diff.MHPFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.MHPJacobianAndValue(f), nil
}

func resolveVJP(explicit diff.VJPFunc, f diff.MatrixFunc, d diff.Differentiator, name string) (diff.VJPFunc, error) {
	if explicit != nil {
		return explicit, nil
	}
	if d == nil {
		return nil, &ConfigError{Name: name}
	}
	return d.VJP(f), nil
}
