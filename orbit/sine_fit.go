package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Non-linear sine-wave regression with frequency fixed at the
 *		autocorrelation estimate.
 *
 * Description:	Fits s(t) = A*sin(2*pi*f*t + phi) + C by damped
 *		Gauss-Newton (Levenberg-Marquardt) iteration over the three
 *		free parameters (A, phi, C); f is fixed. gonum ships no
 *		packaged Levenberg-Marquardt solver, so this hand-rolled
 *		damped normal-equation solve is what exercises
 *		gonum.org/v1/gonum/mat.
 *
 *------------------------------------------------------------------*/

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// sineValue evaluates A*sin(2*pi*f*t + phi) + C.
func sineValue(freq, t, amplitude, phase, verticalOffset float64) float64 {
	return amplitude*math.Sin(2*math.Pi*freq*t+phase) + verticalOffset
}

// fitSine fits SineParams to (t, y) with frequency held fixed, via damped
// Gauss-Newton iteration. It always returns a result; on numerical
// trouble (e.g. degenerate Jacobian) it returns the best estimate found so
// far rather than failing. Non-convergence is neither detected nor logged,
// and it never degrades the kernel to the sentinel result: only a
// too-short window or a failed frequency estimate does that.
func fitSine(t, y []float64, freq float64) SineParams {
	n := len(t)
	if n == 0 {
		return SineParams{}
	}

	amplitude := initialAmplitude(y)
	phase := 0.0
	offset := 0.0

	lambda := 1e-3
	const maxIter = 60

	cost := sineCost(t, y, freq, amplitude, phase, offset)

	for iter := 0; iter < maxIter; iter++ {
		jac := mat.NewDense(n, 3, nil)
		residual := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			arg := 2*math.Pi*freq*t[i] + phase
			s, c := math.Sin(arg), math.Cos(arg)
			model := amplitude*s + offset
			residual.SetVec(i, model-y[i])
			jac.Set(i, 0, s)
			jac.Set(i, 1, amplitude*c)
			jac.Set(i, 2, 1)
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), residual)

		accepted := false
		for tries := 0; tries < 10; tries++ {
			damped := mat.DenseCopyOf(&jtj)
			for i := 0; i < 3; i++ {
				damped.Set(i, i, damped.At(i, i)*(1+lambda))
			}

			var delta mat.VecDense
			if err := delta.SolveVec(damped, &jtr); err != nil {
				lambda *= 10
				continue
			}

			candidateAmplitude := amplitude - delta.AtVec(0)
			candidatePhase := phase - delta.AtVec(1)
			candidateOffset := offset - delta.AtVec(2)

			newCost := sineCost(t, y, freq, candidateAmplitude, candidatePhase, candidateOffset)
			if newCost < cost {
				amplitude, phase, offset = candidateAmplitude, candidatePhase, candidateOffset
				cost = newCost
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				break
			}
			lambda *= 10
		}

		if !accepted {
			break
		}
	}

	return SineParams{Amplitude: amplitude, Phase: wrapPhase(phase), VerticalOffset: offset}
}

func sineCost(t, y []float64, freq, amplitude, phase, offset float64) float64 {
	var sum float64
	for i := range t {
		e := sineValue(freq, t[i], amplitude, phase, offset) - y[i]
		sum += e * e
	}
	return sum
}

func initialAmplitude(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	lo, hi := y[0], y[0]
	for _, v := range y {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return (hi - lo) / 2
}

func wrapPhase(phase float64) float64 {
	for phase > math.Pi {
		phase -= 2 * math.Pi
	}
	for phase < -math.Pi {
		phase += 2 * math.Pi
	}
	return phase
}
