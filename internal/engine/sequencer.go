package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
	"github.com/gzale/wrapcycle/internal/signer"
)

// NodeClient is the chain capability the engine drives: gas price and balance
// queries plus the two wrapped-token transactions.
type NodeClient interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	WrappedBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	Deposit(ctx context.Context, s signer.Signer, value, gasPrice *big.Int) (string, error)
	Withdraw(ctx context.Context, s signer.Signer, tokenAmount, gasPrice *big.Int) (string, error)
}

// Sequencer drives all accounts through the configured number of repetitions,
// strictly sequentially, with a delay between consecutive actions.
type Sequencer struct {
	Client NodeClient
	Gas    *GasAdvisor
	Retry  *Retrier
	Log    logging.Logger

	// Report receives every completed outcome (console link, journal).
	Report func(Outcome)

	Delay          time.Duration // between consecutive actions, skipped after the last
	PreActionPause time.Duration // brief pause before each cycle to avoid hammering the node
	Sleep          SleepFunc
}

func NewSequencer(client NodeClient, gas *GasAdvisor, retry *Retrier, log logging.Logger) *Sequencer {
	return &Sequencer{
		Client:         client,
		Gas:            gas,
		Retry:          retry,
		Log:            log,
		PreActionPause: 700 * time.Millisecond,
		Sleep:          Sleep,
	}
}

// Run performs repetitions × len(accounts) actions in row-major order
// (repetition outer, account inner). It only returns early when ctx is
// cancelled; execution failures are retried inside the cycle and never
// propagate.
func (s *Sequencer) Run(ctx context.Context, accounts []Account, repetitions int) error {
	total := 0
	for rep := 0; rep < repetitions; rep++ {
		for i, acct := range accounts {
			if err := s.runCycle(ctx, acct, rep); err != nil {
				return err
			}
			total++
			last := rep == repetitions-1 && i == len(accounts)-1
			if !last {
				if err := s.Sleep(ctx, s.Delay); err != nil {
					return err
				}
			}
		}
	}
	s.Log.Infof("pass complete: %d transactions across %d accounts", total, len(accounts))
	return nil
}

// runCycle never gives up on an account: anything escaping the retry layer is
// logged and the cycle restarts from the pre-action pause.
func (s *Sequencer) runCycle(ctx context.Context, acct Account, rep int) error {
	for {
		err := s.attemptCycle(ctx, acct, rep)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Log.Errorf("account %s cycle error: %s, restarting cycle", acct.Address(), clierr.Describe(err))
	}
}

func (s *Sequencer) attemptCycle(ctx context.Context, acct Account, rep int) error {
	if err := s.Sleep(ctx, s.PreActionPause); err != nil {
		return err
	}
	label := fmt.Sprintf("account %s", acct.Address())
	return s.Retry.Do(ctx, label, func(ctx context.Context) error {
		// The balance is re-checked inside the retried closure so every
		// attempt acts on fresh state.
		action, err := SelectAction(ctx, s.Client, acct)
		if err != nil {
			return err
		}
		gasPrice, err := s.Gas.Advise(ctx)
		if err != nil {
			return err
		}
		var hash string
		switch action.Kind {
		case ActionUnwrap:
			hash, err = s.Client.Withdraw(ctx, acct.Signer, action.Amount, gasPrice)
		default:
			hash, err = s.Client.Deposit(ctx, acct.Signer, action.Amount, gasPrice)
		}
		if err != nil {
			return err
		}
		outcome := Outcome{
			Kind:       action.Kind,
			Account:    acct.Address(),
			TxHash:     hash,
			Amount:     action.Amount,
			Repetition: rep,
		}
		s.Log.Infof("%s submitted for %s: %s", action.Kind, acct.Address().Hex(), hash)
		if s.Report != nil {
			s.Report(outcome)
		}
		return nil
	})
}
