package types

import "errors"

// Timing errors.
var (
	ErrNotStarted           = errors.New("pool has not started")
	ErrInsufficientTimeLeft = errors.New("insufficient time left before pool end")
	ErrVaultMatured         = errors.New("vault has already matured")
	ErrVaultNotMatured      = errors.New("vault has not matured yet")
	ErrStakingEnded         = errors.New("staking window for this vault has ended")
	ErrTimestampRegression  = errors.New("timestamp precedes last observed update")
)

// Identity / authorization errors.
var (
	ErrIncorrectCaller       = errors.New("caller is not authorized for this action")
	ErrUserIsNotVaultCreator = errors.New("user is not the vault creator")
	ErrNonExistentVault      = errors.New("vault does not exist")
	ErrPermitDenied          = errors.New("points ledger permit denied")
)

// Shape errors.
var (
	ErrInvalidVaultPeriod        = errors.New("invalid vault duration class")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidVaultId            = errors.New("invalid vault id")
	ErrInvalidRouter             = errors.New("invalid router")
	ErrInvalidEmissionParameters = errors.New("invalid emission parameters")
)

// Policy errors.
var (
	ErrTotalFeeFactorExceeded       = errors.New("creator fee plus boost fee exceeds precision")
	ErrCreatorFeeCanOnlyBeDecreased = errors.New("creator fee can only be decreased")
	ErrBoostFeeCanOnlyBeIncreased   = errors.New("boost fee can only be increased")
	ErrBoostStakingLimitExceeded    = errors.New("boost staking limit exceeded")
	ErrStakedTokenLimitExceeded     = errors.New("staked token limit exceeded")
	ErrUserHasNothingStaked         = errors.New("user has nothing staked")
)

// Lifecycle errors.
var (
	ErrPoolFrozen    = errors.New("pool is frozen")
	ErrPoolNotFrozen = errors.New("pool is not frozen")
	ErrNotPaused     = errors.New("pool is not paused")
	ErrAlreadyFrozen = errors.New("pool is already frozen")
)
