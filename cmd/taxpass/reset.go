package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
)

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <transaction-id>",
		Short: "Reset a transaction's passes back to pending",
		Long: `Clear a transaction's pass statuses back to pending from the given
pass onward, nulling the corresponding classification fields and error
messages. Reset is the only path from completed back to pending.`,
		Args: cobra.ExactArgs(1),
		RunE: runReset,
	}

	cmd.Flags().String("client", "", "client name")
	cmd.Flags().String("from-pass", "payee", "first pass to reset (payee, category, business)")

	return cmd
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	clientName, _ := cmd.Flags().GetString("client")
	fromPassName, _ := cmd.Flags().GetString("from-pass")

	fromPass, err := parsePassFlag(fromPassName)
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

	if err := store.ResetPasses(ctx, client.ID, args[0], fromPass); err != nil {
		return err
	}

	fmt.Println(cli.Success(fmt.Sprintf("reset %s from the %s pass", args[0], fromPass)))
	return nil
}
