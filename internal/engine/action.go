package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gzale/wrapcycle/internal/signer"
)

// Account pairs a signing identity with its configured wrap target.
type Account struct {
	Signer     signer.Signer
	WrapAmount *big.Int // base units deposited when the wrapped balance is zero
}

func (a Account) Address() common.Address {
	return a.Signer.Address()
}

// ActionKind tags the two things the bot ever does.
type ActionKind int

const (
	ActionWrap ActionKind = iota
	ActionUnwrap
)

func (k ActionKind) String() string {
	if k == ActionUnwrap {
		return "unwrap"
	}
	return "wrap"
}

// Action is the selected operation for one cycle: wrap a configured amount or
// unwrap the entire current balance.
type Action struct {
	Kind   ActionKind
	Amount *big.Int
}

// Outcome describes one executed transaction. Produced and reported, not held.
type Outcome struct {
	Kind       ActionKind
	Account    common.Address
	TxHash     string
	Amount     *big.Int
	Repetition int
}
