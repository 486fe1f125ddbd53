package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/model"
)

func forceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "force <transaction-id>",
		Short: "Flag a pass for rerun on the next processing run",
		Long: `Mark one of a transaction's passes force_required. The next processing
run reclaims it even though it already completed, and the fresh result
overwrites both the record and the cache entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setOperatorPassState(cmd, args[0], markForce)
		},
	}

	cmd.Flags().String("client", "", "client name")
	cmd.Flags().String("pass", "", "pass to flag (payee, category, business) (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func skipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip <transaction-id>",
		Short: "Mark a pass as deliberately skipped",
		Long: `Mark one of a transaction's passes skipped. Processing runs leave a
skipped pass alone until an operator forces it or resets the transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setOperatorPassState(cmd, args[0], markSkip)
		},
	}

	cmd.Flags().String("client", "", "client name")
	cmd.Flags().String("pass", "", "pass to skip (payee, category, business) (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

type passStateOp int

const (
	markForce passStateOp = iota
	markSkip
)

func setOperatorPassState(cmd *cobra.Command, transactionID string, op passStateOp) error {
	ctx := cmd.Context()
	clientName, _ := cmd.Flags().GetString("client")
	passName, _ := cmd.Flags().GetString("pass")

	pass, err := parsePassFlag(passName)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := resolveClient(ctx, store, clientName)
	if err != nil {
		return err
	}

	if err := applyOperatorPassState(ctx, store, client.ID, transactionID, pass, op); err != nil {
		return err
	}

	verb := "flagged for rerun"
	if op == markSkip {
		verb = "marked skipped"
	}
	fmt.Println(cli.Success(fmt.Sprintf("%s pass of %s %s", pass, transactionID, verb)))
	return nil
}

func applyOperatorPassState(ctx context.Context, store operatorPassStore, clientID, transactionID string, pass model.Pass, op passStateOp) error {
	if op == markSkip {
		return store.MarkPassSkipped(ctx, clientID, transactionID, pass)
	}
	return store.ForcePass(ctx, clientID, transactionID, pass)
}

type operatorPassStore interface {
	MarkPassSkipped(ctx context.Context, clientID, transactionID string, pass model.Pass) error
	ForcePass(ctx context.Context, clientID, transactionID string, pass model.Pass) error
}
