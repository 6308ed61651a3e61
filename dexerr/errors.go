// Package dexerr defines the error taxonomy returned by the core library:
// store failures, missing pools, invalid dex/fee values, V3 math errors, and
// the quoter's wrapping GetPriceError. Callers use errors.Is against the
// sentinels; the constructors attach the offending value via %w.
package dexerr

import (
	"errors"
	"fmt"

	"github.com/dexquoter/dexquoter/dexcommon"
)

var (
	ErrStore       = errors.New("store error")
	ErrPoolNotFound = errors.New("pool not found")
	ErrInvalidDex  = errors.New("invalid dex")
	ErrInvalidFee  = errors.New("invalid fee")
	ErrMath        = errors.New("math error")
	ErrGetPrice    = errors.New("get price error")
)

// MathKind enumerates the V3 math failure kinds named in spec §7.
type MathKind string

const (
	MathLiquidityAdd     MathKind = "LiquidityAdd"
	MathLiquiditySub     MathKind = "LiquiditySub"
	MathTickOutOfRange   MathKind = "TickOutOfRange"
	MathSqrtOutOfRange   MathKind = "SqrtRatioOutOfRange"
	MathZeroBitScan      MathKind = "ZeroBitScan"
)

func Store(cause error) error {
	return fmt.Errorf("%w: %v", ErrStore, cause)
}

func PoolNotFound(addr dexcommon.Address) error {
	return fmt.Errorf("%w: %s", ErrPoolNotFound, dexcommon.AddrHex(addr))
}

func InvalidDex(dex string) error {
	return fmt.Errorf("%w: %q", ErrInvalidDex, dex)
}

func InvalidFee(fee uint32) error {
	return fmt.Errorf("%w: %d", ErrInvalidFee, fee)
}

func Math(kind MathKind, detail error) error {
	return fmt.Errorf("%w: %s: %v", ErrMath, kind, detail)
}

func GetPrice(cause error) error {
	return fmt.Errorf("%w: %v", ErrGetPrice, cause)
}
