package polynomial

import (
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
)

// Lagrange returns the Lagrange coefficients at 0 for the subset of
// evaluation points selected by indices. points maps a share index to
// its VSS evaluation point ωⱼ, a distinct non-zero field element.
//
//	         ω₀ ⋅⋅⋅ ωₖ
//	λⱼ(0) = ────────────────────────────────
//	         ωⱼ⋅(ω₀-ωⱼ)⋅⋅⋅(ωⱼ₋₁-ωⱼ)⋅(ωⱼ₊₁-ωⱼ)⋅⋅⋅
func Lagrange(group curve.Curve, points map[uint16]curve.Scalar, indices []uint16) map[uint16]curve.Scalar {
	// numerator = ω₀ ⋅ … ⋅ ωₖ
	numerator := group.NewScalar().SetNat(new(arith.Nat).SetUint64(1))
	for _, i := range indices {
		numerator.Mul(points[i])
	}

	coefficients := make(map[uint16]curve.Scalar, len(indices))
	tmp := group.NewScalar()
	for _, j := range indices {
		xJ := points[j]
		denominator := group.NewScalar().SetNat(new(arith.Nat).SetUint64(1))
		for _, i := range indices {
			if i == j {
				// λⱼ *= ωⱼ
				denominator.Mul(xJ)
				continue
			}
			// tmp = ωᵢ - ωⱼ
			tmp.Set(xJ).Negate().Add(points[i])
			denominator.Mul(tmp)
		}
		lJ := denominator.Invert()
		lJ.Mul(numerator)
		coefficients[j] = lJ
	}
	return coefficients
}
