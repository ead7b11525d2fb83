package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gzale/wrapcycle/internal/amount"
	"github.com/gzale/wrapcycle/internal/chain"
	"github.com/gzale/wrapcycle/internal/checkin"
	"github.com/gzale/wrapcycle/internal/config"
	"github.com/gzale/wrapcycle/internal/engine"
	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
	"github.com/gzale/wrapcycle/internal/out"
	"github.com/gzale/wrapcycle/internal/signer"
	"github.com/gzale/wrapcycle/internal/store"
	"github.com/gzale/wrapcycle/internal/version"
	"github.com/spf13/cobra"
)

// Runner owns the command tree and the process exit code.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr}
}

func (r *Runner) Run(args []string) int {
	root := r.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return clierr.ExitCode(err)
	}
	return 0
}

func (r *Runner) newRootCommand() *cobra.Command {
	var flags config.Flags

	root := &cobra.Command{
		Use:   version.CLIName,
		Short: "Scheduled wrap/unwrap cycling for wrapped native tokens",
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.EnvFile, "env-file", "", "path to a .env file with account secrets")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(r.newRunCommand(&flags))
	root.AddCommand(r.newHistoryCommand(&flags))
	root.AddCommand(r.newVersionCommand())
	return root
}

func (r *Runner) newRunCommand(flags *config.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the wrap/unwrap cycle once (manual) or on the daily schedule (auto)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*flags)
			if err != nil {
				return err
			}
			return r.runBot(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&flags.Mode, "mode", "", "manual or auto")
	cmd.Flags().StringVar(&flags.RPCURL, "rpc-url", "", "blockchain node RPC endpoint")
	cmd.Flags().IntVar(&flags.Transactions, "transactions", 0, "repetitions per account")
	cmd.Flags().IntVar(&flags.DelayMinutes, "delay-minutes", 0, "delay between consecutive transactions")
	cmd.Flags().StringVar(&flags.GasMultiplier, "gas-multiplier", "", "gas price scaling factor")
	cmd.Flags().IntVar(&flags.Hour, "hour", -1, "daily run hour [0-23] (auto mode)")
	cmd.Flags().IntVar(&flags.Minute, "minute", -1, "daily run minute [0-59] (auto mode)")
	cmd.Flags().BoolVar(&flags.Confirm, "confirm", false, "wait for transaction receipts")
	cmd.Flags().BoolVar(&flags.NoJournal, "no-journal", false, "disable the sqlite outcome journal")
	return cmd
}

func (r *Runner) runBot(ctx context.Context, cfg config.Config) error {
	log := logging.New(cfg.Verbose)
	printer := out.New(r.stdout)

	accounts, err := loadAccounts(cfg)
	if err != nil {
		return err
	}
	log.Infof("loaded %d account(s), mode %s", len(accounts), cfg.Mode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.Dial(ctx, cfg.RPCURL, common.HexToAddress(cfg.WrappedToken), chain.Options{
		Confirm:        cfg.Confirm,
		PollInterval:   2 * time.Second,
		ConfirmTimeout: 2 * time.Minute,
	}, log)
	if err != nil {
		return err
	}
	defer client.Close()

	var journal *store.Store
	if cfg.JournalEnabled {
		journal, err = store.Open(cfg.JournalPath, cfg.JournalLockPath)
		if err != nil {
			return clierr.Wrap(clierr.CodeInternal, "open outcome journal", err)
		}
		defer func() { _ = journal.Close() }()
	}

	seq := engine.NewSequencer(client, engine.NewGasAdvisor(client, cfg.GasRat(), log), engine.NewRetrier(log), log)
	seq.Delay = cfg.Delay()
	seq.Report = func(o engine.Outcome) {
		printer.TxLink(cfg.ExplorerURL, o.Kind.String(), o.TxHash)
		if journal == nil {
			return
		}
		if err := journal.Save(store.Record{
			Kind:       o.Kind.String(),
			Account:    o.Account.Hex(),
			TxHash:     o.TxHash,
			Amount:     amount.FromBaseUnits(o.Amount, amount.WrappedTokenDecimals),
			Repetition: o.Repetition,
		}); err != nil {
			log.Warnf("journal write failed: %v", err)
		}
	}

	notify := func(ctx context.Context) {}
	if cfg.Checkin.URL != "" {
		notifier := checkin.New(cfg.Checkin.URL, cfg.Checkin.TaskID, cfg.Checkin.Timeout, log)
		addrs := make([]common.Address, len(accounts))
		for i, acct := range accounts {
			addrs[i] = acct.Address()
		}
		notify = func(ctx context.Context) {
			notifier.NotifyAll(ctx, addrs)
		}
	} else {
		log.Debugf("check-in URL not configured, skipping daily check-in")
	}

	ctrl := engine.NewController(func(ctx context.Context) error {
		return seq.Run(ctx, accounts, cfg.Transactions)
	}, notify, log)
	ctrl.Countdown = printer.Countdown

	switch cfg.Mode {
	case config.ModeAuto:
		err = ctrl.RunAuto(ctx, *cfg.Hour, *cfg.Minute)
	default:
		err = ctrl.RunManual(ctx)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.EndCountdown()
			log.Infof("shutdown requested, exiting")
			return nil
		}
		return err
	}
	printer.Successf("done")
	return nil
}

func loadAccounts(cfg config.Config) ([]engine.Account, error) {
	accounts := make([]engine.Account, 0, len(cfg.Accounts))
	for i, ac := range cfg.Accounts {
		s, err := signer.NewLocalSigner(signer.KeySource{
			PrivateKeyHex:        ac.Key,
			PrivateKeyEnv:        ac.KeyEnv,
			PrivateKeyFile:       ac.KeyFile,
			KeystorePath:         ac.KeystorePath,
			KeystorePassword:     ac.KeystorePassword,
			KeystorePasswordFile: ac.KeystorePasswordFile,
		})
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeSigner, fmt.Sprintf("account %d", i), err)
		}
		wei, err := config.WrapAmountWei(ac)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, engine.Account{Signer: s, WrapAmount: wei})
	}
	return accounts, nil
}

func (r *Runner) newHistoryCommand(flags *config.Flags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent wrap/unwrap outcomes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// History only needs journal paths; a config missing chain
			// settings should still be browsable.
			path, lockPath := "", ""
			if cfg, err := config.Load(*flags); err == nil {
				path, lockPath = cfg.JournalPath, cfg.JournalLockPath
			} else if typed, ok := clierr.As(err); ok && typed.Code == clierr.CodeConfig {
				path, lockPath, err = store.DefaultPaths()
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "resolve journal path", err)
				}
			} else {
				return err
			}
			journal, err := store.Open(path, lockPath)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "open outcome journal", err)
			}
			defer func() { _ = journal.Close() }()

			records, err := journal.List(limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "read outcome journal", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(r.stdout, "no outcomes recorded")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(r.stdout, "%s  %-6s  %s  %s  %s\n", rec.CreatedAt, rec.Kind, rec.Account, rec.Amount, rec.TxHash)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum outcomes to show")
	return cmd
}

func (r *Runner) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(r.stdout, "%s %s\n", version.CLIName, version.Long())
		},
	}
}
