package arith

// Modulus wraps a Nat modulus and, when the factorization n = p⋅q is
// known, accelerates exponentiation with two half-size exponentiations
// recombined by CRT.
type Modulus struct {
	n *Nat
	// n = p⋅q, nil for public moduli
	p, q *Nat
	// pInv = p⁻¹ (mod q)
	pInv *Nat
}

// ModulusFromN wraps n without factorization. The value is not copied.
func ModulusFromN(n *Nat) *Modulus {
	return &Modulus{n: n}
}

// ModulusFromFactors builds the cached values needed for CRT
// exponentiation modulo p⋅q.
func ModulusFromFactors(p, q *Nat) *Modulus {
	n := new(Nat).Mul(p, q, -1)
	return &Modulus{
		n:    n,
		p:    p.Clone(),
		q:    q.Clone(),
		pInv: new(Nat).ModInverse(p, q),
	}
}

// Nat returns the modulus value.
func (m *Modulus) Nat() *Nat { return m.n }

// BitLen returns the bit length of the modulus.
func (m *Modulus) BitLen() int { return m.n.BitLen() }

func (m *Modulus) hasFactorization() bool {
	return m.p != nil && m.q != nil && m.pInv != nil
}

// Exp returns x^|e| (mod n).
func (m *Modulus) Exp(x, e *Nat) *Nat {
	if m.hasFactorization() {
		var xp, xq Nat
		xp.Exp(x, e, m.p) // x₁ = xᵉ (mod p)
		xq.Exp(x, e, m.q) // x₂ = xᵉ (mod q)
		// r = x₁ + p ⋅ [p⁻¹ (mod q)] ⋅ (x₂ - x₁) (mod n)
		r := new(Nat).ModSub(&xq, &xp, m.n)
		r.ModMul(r, m.pInv, m.n)
		r.ModMul(r, m.p, m.n)
		r.ModAdd(r, &xp, m.n)
		return r
	}
	return new(Nat).Exp(x, e, m.n)
}

// ExpI returns xᵉ (mod n), inverting the result for negative e.
func (m *Modulus) ExpI(x, e *Nat) *Nat {
	y := m.Exp(x, e.Abs())
	if e.IsNegative() {
		return new(Nat).ModInverse(y, m.n)
	}
	return y
}
