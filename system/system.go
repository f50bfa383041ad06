package system

import (
	"github.com/hmclab/hamgeo/diff"
	"github.com/hmclab/hamgeo/ham"
)

// Cache keys for derived quantities. Multi-valued computations store
// under several of these at once.
const (
	keyPotEnergy            = "pot_energy"
	keyGradPotEnergy        = "grad_pot_energy"
	keyKinEnergy            = "kin_energy"
	keyGradKinEnergy        = "grad_kin_energy"
	keyMetric               = "metric"
	keyCholMetric           = "chol_metric"
	keyInvMetric            = "inv_metric"
	keyInvCholMetric        = "inv_chol_metric"
	keyVJPMetric            = "vjp_metric"
	keyVJPCholMetric        = "vjp_chol_metric"
	keyHessPotEnergy        = "hess_pot_energy"
	keyMTPPotEnergy         = "mtp_pot_energy"
	keyEigMetric            = "eig_metric"
	keySqrtMetric           = "sqrt_metric"
	keyLogDetSqrtMetric     = "log_det_sqrt_metric"
	keyGradLogDetSqrtMetric = "grad_log_det_sqrt_metric"
	keyInvMetricMom         = "inv_metric_mom"
	keyGradMomInvMetricMom  = "grad_mom_inv_metric_mom"
	keyConstr               = "constr"
	keyJacobConstr          = "jacob_constr"
	keyInvMetricJacobT      = "inv_metric_jacob_constr_t"
	keyCholGram             = "chol_gram"
	keyGenerator            = "generator"
	keyJacobGenerator       = "jacob_generator"
	keyMHPGenerator         = "mhp_generator"
	keyLogDetSqrtGram       = "log_det_sqrt_gram"
	keyGradLogDetSqrtGram   = "grad_log_det_sqrt_gram"
)

// potential is the energy capability every variant composes: the
// user-supplied potential and its (resolved) gradient, cached on
// position. The gradient call populates the plain value too, so a
// later PotEnergy on the same state is free.
type potential struct {
	potFn  diff.Func
	gradFn diff.GradFunc
}

func newPotential(pot diff.Func, grad diff.GradFunc, d diff.Differentiator) (potential, error) {
	gradFn, err := resolveGrad(grad, pot, d, "grad of potential energy")
	if err != nil {
		return potential{}, err
	}
	return potential{potFn: pot, gradFn: gradFn}, nil
}

func (p *potential) PotEnergy(s *ham.State) (float64, error) {
	return ham.Cached(s, ham.FieldPos, keyPotEnergy, func() (float64, error) {
		return p.potFn(s.Pos()), nil
	})
}

func (p *potential) GradPotEnergy(s *ham.State) (ham.Vector, error) {
	v, err := ham.CachedMulti(s, ham.FieldPos,
		[]string{keyGradPotEnergy, keyPotEnergy},
		func() ([]any, error) {
			grad, val := p.gradFn(s.Pos())
			return []any{grad, val}, nil
		})
	if err != nil {
		return nil, err
	}
	return v.(ham.Vector), nil
}
