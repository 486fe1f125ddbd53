package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/rules"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read classified output",
	}

	cmd.PersistentFlags().String("client", "", "client name")

	cmd.AddCommand(reportTotalsCmd())
	cmd.AddCommand(reportTransactionsCmd())

	return cmd
}

func reportTotalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Worksheet totals for a tax year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientName, _ := cmd.Flags().GetString("client")
			year, _ := cmd.Flags().GetInt("year")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client, err := resolveClient(ctx, store, clientName)
			if err != nil {
				return err
			}

			totals, err := store.GetWorksheetTotals(ctx, client.ID, year)
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				fmt.Printf("no classified transactions for %d\n", year)
				return nil
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Worksheet totals for %s, %d", client.Name, year)))
			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-35s %6s %12s %12s", "WORKSHEET", "CATEGORY", "COUNT", "AMOUNT", "BUSINESS")))
			for _, t := range totals {
				fmt.Printf("%-12s %-35s %6d %12.2f %12.2f\n",
					t.Worksheet, t.Category, t.Count, t.Amount, t.BusinessAmount)
			}
			return nil
		},
	}
	cmd.Flags().Int("year", time.Now().Year(), "tax year")
	return cmd
}

func reportTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Per-transaction final view with rule overlay applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientName, _ := cmd.Flags().GetString("client")
			firstMatchWins, _ := cmd.Flags().GetBool("first-match-wins")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client, err := resolveClient(ctx, store, clientName)
			if err != nil {
				return err
			}

			classified, err := store.ListClassified(ctx, client.ID)
			if err != nil {
				return err
			}
			ruleSet, err := store.ListRules(ctx, client.ID, true)
			if err != nil {
				return err
			}

			applier := rules.NewApplier(ruleSet, rules.ApplierConfig{FirstMatchWins: firstMatchWins})

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-40s %10s %-20s %-20s %-12s", "DATE", "DESCRIPTION", "AMOUNT", "PAYEE", "CATEGORY", "WORKSHEET")))
			for i := range classified {
				ct := &classified[i]
				app := applier.Apply(ct)

				desc := ct.Transaction.Description
				if len(desc) > 40 {
					desc = desc[:37] + "..."
				}
				line := fmt.Sprintf("%-12s %-40s %10.2f %-20v %-20v %-12v",
					ct.Transaction.Date.Format("2006-01-02"), desc, ct.Transaction.Amount,
					stringField(app.Fields, "payee"), stringField(app.Fields, "category"),
					stringField(app.Fields, "worksheet"))
				if len(app.Matched) > 0 {
					line += cli.SubtleStyle.Render(fmt.Sprintf("  (%d rules)", len(app.Matched)))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().Bool("first-match-wins", false, "let the highest-priority matching rule win contested fields instead of the default overwrite order")
	return cmd
}

func stringField(fields map[string]any, key string) any {
	if v, ok := fields[key]; ok {
		return v
	}
	return "-"
}
