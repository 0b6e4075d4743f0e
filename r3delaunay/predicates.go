// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r3delaunay

import (
	"math/big"

	"github.com/golang/geo/r3"
)

// Relative error bounds of the floating point determinants below. A result
// within the bound of zero is recomputed exactly.
const (
	epsilon          = 0x1p-53
	orientErrBound   = 16 * epsilon
	inSphereErrBound = 64 * epsilon
)

// orientSign returns the sign of Orient(a, b, c, d). Uncertain results are
// recomputed with r3.PreciseVector arithmetic.
func orientSign(a, b, c, d r3.Vector) int {
	u, v, w := b.Sub(a), c.Sub(a), d.Sub(a)
	det := u.Dot(v.Cross(w))
	bound := orientErrBound * permanent(u.Abs(), v.Abs(), w.Abs())
	switch {
	case det > bound:
		return 1
	case det < -bound:
		return -1
	}
	return preciseDet(preciseSub(b, a), preciseSub(c, a), preciseSub(d, a)).Sign()
}

// inSphereSign returns the sign of the lifted determinant of (a, b, c, d, e), computed
// exactly. When Orient(a, b, c, d) is positive the result is positive if e lies
// inside the sphere through a, b, c and d, and zero if it lies on it.
func inSphereSign(a, b, c, d, e r3.Vector) int {
	ae, be, ce, de := a.Sub(e), b.Sub(e), c.Sub(e), d.Sub(e)
	la, lb, lc, ld := ae.Norm2(), be.Norm2(), ce.Norm2(), de.Norm2()

	det := la*be.Dot(ce.Cross(de)) - lb*ae.Dot(ce.Cross(de)) +
		lc*ae.Dot(be.Cross(de)) - ld*ae.Dot(be.Cross(ce))

	aa, ba, ca, da := ae.Abs(), be.Abs(), ce.Abs(), de.Abs()
	perm := la*permanent(ba, ca, da) + lb*permanent(aa, ca, da) +
		lc*permanent(aa, ba, da) + ld*permanent(aa, ba, ca)
	bound := inSphereErrBound * perm
	switch {
	case det > bound:
		return 1
	case det < -bound:
		return -1
	}

	pa, pb, pc, pd := preciseSub(a, e), preciseSub(b, e), preciseSub(c, e), preciseSub(d, e)
	terms := [4]*big.Float{
		preciseMul(pa.Norm2(), preciseDet(pb, pc, pd)),
		preciseMul(pb.Norm2(), preciseDet(pa, pc, pd)),
		preciseMul(pc.Norm2(), preciseDet(pa, pb, pd)),
		preciseMul(pd.Norm2(), preciseDet(pa, pb, pc)),
	}
	exact := new(big.Float).SetPrec(r3.MaxPrec).Sub(terms[0], terms[1])
	exact.Add(exact, terms[2])
	exact.Sub(exact, terms[3])
	return exact.Sign()
}

// permanent returns u·(v×w) with every product taken positive. Arguments are
// expected to hold absolute values.
func permanent(u, v, w r3.Vector) float64 {
	return u.X*(v.Y*w.Z+v.Z*w.Y) + u.Y*(v.X*w.Z+v.Z*w.X) + u.Z*(v.X*w.Y+v.Y*w.X)
}

func preciseSub(p, q r3.Vector) r3.PreciseVector {
	return r3.PreciseVectorFromVector(p).Sub(r3.PreciseVectorFromVector(q))
}

// preciseDet returns u·(v×w).
func preciseDet(u, v, w r3.PreciseVector) *big.Float {
	return u.Dot(v.Cross(w))
}

func preciseMul(x, y *big.Float) *big.Float {
	return new(big.Float).SetPrec(r3.MaxPrec).Mul(x, y)
}
