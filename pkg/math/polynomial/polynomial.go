// Package polynomial implements the Shamir polynomials and Lagrange
// interpolation used by the VSS layer.
package polynomial

import (
	"io"

	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
)

// Polynomial is f(X) = Σ aᵢ Xⁱ over ℤ_q, with secret constant term.
type Polynomial struct {
	group        curve.Curve
	coefficients []curve.Scalar
}

// NewPolynomial samples a polynomial of the given degree with the
// provided constant term. A nil constant is sampled at random.
func NewPolynomial(group curve.Curve, degree int, constant curve.Scalar, rand io.Reader) *Polynomial {
	p := &Polynomial{
		group:        group,
		coefficients: make([]curve.Scalar, degree+1),
	}
	if constant == nil {
		constant = sample.Scalar(rand, group)
	}
	p.coefficients[0] = group.NewScalar().Set(constant)
	for i := 1; i <= degree; i++ {
		p.coefficients[i] = sample.Scalar(rand, group)
	}
	return p
}

// Evaluate returns f(x) by Horner's rule. Evaluation at 0 is rejected
// since it would reveal the secret.
func (p *Polynomial) Evaluate(x curve.Scalar) curve.Scalar {
	if x.IsZero() {
		panic("polynomial: attempt to leak secret")
	}
	result := p.group.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		// bₙ₋₁ = bₙ⋅x + aₙ₋₁
		result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// Constant returns a copy of the constant term.
func (p *Polynomial) Constant() curve.Scalar {
	return p.group.NewScalar().Set(p.coefficients[0])
}

// Degree returns the degree of the polynomial.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}
