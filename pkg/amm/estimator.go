// Package amm estimates constant-product swap outputs from pool
// reserve snapshots. Estimates are quotes only; the program enforces
// the real bound through the minimum-out field at execution time.
package amm

import (
	"math/big"

	"github.com/pkg/errors"
)

const bpsDenominator = 10_000

var (
	ErrPoolUnavailable = errors.New("pool reserves unavailable")
	ErrInvalidSlippage = errors.New("slippage exceeds 100%")
)

// PoolState is a point-in-time snapshot of the reserves on both sides
// of a pool, oriented in the direction of the swap.
type PoolState struct {
	ReserveIn  uint64
	ReserveOut uint64

	// FeeBps is the pool's swap fee in basis points, taken from the
	// input amount before the curve is applied.
	FeeBps uint64
}

// Estimate is the result of quoting a swap against a PoolState.
type Estimate struct {
	AmountIn  uint64
	AmountOut uint64

	// MinAmountOut is AmountOut reduced by the caller's slippage
	// tolerance. It rides the wire so the program can reject stale
	// quotes.
	MinAmountOut uint64

	// PriceImpactBps measures how far the swap moves the pool price,
	// in basis points, rounded down.
	PriceImpactBps uint64
}

// Quote computes the output amount for amountIn against a constant
// product curve, x*y=k, with the fee deducted from the input side.
// All arithmetic is exact; intermediate products use big.Int so the
// computation never wraps, and the result rounds down.
func Quote(pool PoolState, amountIn uint64, slippageBps uint64) (*Estimate, error) {
	if pool.ReserveIn == 0 || pool.ReserveOut == 0 {
		return nil, ErrPoolUnavailable
	}
	if pool.FeeBps >= bpsDenominator {
		return nil, errors.Errorf("fee %d bps consumes the entire input", pool.FeeBps)
	}
	if slippageBps > bpsDenominator {
		return nil, ErrInvalidSlippage
	}

	if amountIn == 0 {
		return &Estimate{}, nil
	}

	// amountInWithFee = amountIn * (10000 - feeBps)
	amountInWithFee := new(big.Int).Mul(
		new(big.Int).SetUint64(amountIn),
		big.NewInt(int64(bpsDenominator-pool.FeeBps)),
	)

	// amountOut = amountInWithFee * reserveOut / (reserveIn * 10000 + amountInWithFee)
	numerator := new(big.Int).Mul(amountInWithFee, new(big.Int).SetUint64(pool.ReserveOut))
	denominator := new(big.Int).Mul(new(big.Int).SetUint64(pool.ReserveIn), big.NewInt(bpsDenominator))
	denominator.Add(denominator, amountInWithFee)

	amountOut := new(big.Int).Quo(numerator, denominator)

	// minAmountOut = amountOut * (10000 - slippageBps) / 10000
	minAmountOut := new(big.Int).Mul(amountOut, big.NewInt(int64(bpsDenominator-slippageBps)))
	minAmountOut.Quo(minAmountOut, big.NewInt(bpsDenominator))

	// priceImpactBps = (reserveIn' * reserveOut - reserveIn * reserveOut') * 10000
	//                / (reserveIn * reserveOut')
	//
	// where reserveIn' and reserveOut' are the post-swap reserves. The
	// spot price only moves against the trader, so the delta is never
	// negative.
	postReserveIn := new(big.Int).Add(new(big.Int).SetUint64(pool.ReserveIn), new(big.Int).SetUint64(amountIn))
	postReserveOut := new(big.Int).Sub(new(big.Int).SetUint64(pool.ReserveOut), amountOut)

	impactNum := new(big.Int).Mul(postReserveIn, new(big.Int).SetUint64(pool.ReserveOut))
	impactNum.Sub(impactNum, new(big.Int).Mul(new(big.Int).SetUint64(pool.ReserveIn), postReserveOut))
	impactNum.Mul(impactNum, big.NewInt(bpsDenominator))
	impactDen := new(big.Int).Mul(new(big.Int).SetUint64(pool.ReserveIn), postReserveOut)
	priceImpact := new(big.Int).Quo(impactNum, impactDen)

	// The curve guarantees amountOut < reserveOut <= MaxUint64, so
	// both values always fit.
	return &Estimate{
		AmountIn:       amountIn,
		AmountOut:      amountOut.Uint64(),
		MinAmountOut:   minAmountOut.Uint64(),
		PriceImpactBps: priceImpact.Uint64(),
	}, nil
}
