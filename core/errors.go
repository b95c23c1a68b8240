package core

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownCollateral      = errors.New("unknown collateral")
	ErrCollateralPaused       = errors.New("operation paused for collateral")
	ErrCapExceeded            = errors.New("cap on stable minted exceeded")
	ErrInsufficientBacking    = errors.New("burn amount exceeds stocks users")
	ErrInvalidFeeCurve        = errors.New("invalid fee curve")
	ErrInvalidConfig          = errors.New("invalid collateral config")
	ErrUnauthorized           = errors.New("caller lacks required role")
	ErrCollateralNotWoundDown = errors.New("collateral still has stocks users")
	ErrCollateralExists       = errors.New("collateral already deployed")
	ErrZeroHandle             = errors.New("nil collaborator handle")
	ErrStaleOracle            = errors.New("oracle quote unavailable")
	ErrZeroAmount             = errors.New("zero amount")
	ErrSanRateDeflated        = errors.New("loss exceeds san token backing")
	ErrNoSanTokenSupply       = errors.New("no san token supply")
)
