package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type balanceSource interface {
	WrappedBalance(ctx context.Context, owner common.Address) (*big.Int, error)
}

// SelectAction decides the balance-complementary action for one account. The
// balance is queried fresh on every call: a positive wrapped balance is always
// unwrapped in full, a zero balance triggers a wrap of the configured amount.
// This is what lets the bot self-correct across restarts and interruptions.
func SelectAction(ctx context.Context, source balanceSource, acct Account) (Action, error) {
	balance, err := source.WrappedBalance(ctx, acct.Address())
	if err != nil {
		return Action{}, err
	}
	if balance.Sign() > 0 {
		return Action{Kind: ActionUnwrap, Amount: balance}, nil
	}
	return Action{Kind: ActionWrap, Amount: acct.WrapAmount}, nil
}
