package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/taxonomy"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the tax category taxonomy",
	}

	cmd.PersistentFlags().String("client", "", "client name")

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesDeactivateCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tax categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientName, _ := cmd.Flags().GetString("client")
			all, _ := cmd.Flags().GetBool("all")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client, err := resolveClient(ctx, store, clientName)
			if err != nil {
				return err
			}

			cats, err := store.GetTaxCategories(ctx, client.ID, !all)
			if err != nil {
				return err
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-5s %-12s %-35s %-8s %-7s", "ID", "WORKSHEET", "NAME", "YEAR", "ACTIVE")))
			for _, cat := range cats {
				year := "-"
				if cat.TaxYear != 0 {
					year = strconv.Itoa(cat.TaxYear)
				}
				fmt.Printf("%-5d %-12s %-35s %-8s %-7t\n", cat.ID, cat.Worksheet, cat.Name, year, cat.IsActive)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "include deactivated categories")
	return cmd
}

func categoriesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <additions.yaml>",
		Short: "Add client-specific categories from a YAML file",
		Long: `Add tax-year-scoped categories for a client. Each entry names one of
the fixed worksheets, a category name, and a tax year. The reserved
personal-expense category cannot be redefined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientName, _ := cmd.Flags().GetString("client")

			cats, err := taxonomy.LoadAdditions(args[0])
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

			for i := range cats {
				cats[i].ClientID = client.ID
				created, err := store.AddClientTaxCategory(ctx, &cats[i])
				if err != nil {
					return fmt.Errorf("failed to add category %q: %w", cats[i].Name, err)
				}
				fmt.Println(cli.Success(fmt.Sprintf("added %s / %s (id %d)", created.Worksheet, created.Name, created.ID)))
			}
			return nil
		},
	}
}

func categoriesDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <category-id>",
		Short: "Deactivate a tax category (kept for historical totals)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeactivateTaxCategory(ctx, id); err != nil {
				return err
			}
			fmt.Println(cli.Success(fmt.Sprintf("category %d deactivated", id)))
			return nil
		},
	}
}
