package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/config"
	"github.com/ledgerworks/taxpass/internal/llm"
	"github.com/ledgerworks/taxpass/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage deterministic classification rules",
	}

	cmd.PersistentFlags().String("client", "", "client name")

	cmd.AddCommand(rulesMineCmd())
	cmd.AddCommand(rulesSuggestCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesActivateCmd())
	cmd.AddCommand(rulesDeactivateCmd())
	cmd.AddCommand(rulesPriorityCmd())

	return cmd
}

func rulesMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine candidate rules from classified history",
		Long: `Group classified transactions by payee, category, and amount bucket,
generate candidate rules for each group, backtest them against history,
and persist the candidates that clear the accuracy gate. Rejected
candidates are reported with reasons and discarded.`,
		RunE: runRulesMine,
	}
	cmd.Flags().Int("min-group", 3, "minimum group size worth mining")
	return cmd
}

func runRulesMine(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	clientName, _ := cmd.Flags().GetString("client")
	minGroup, _ := cmd.Flags().GetInt("min-group")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := resolveClient(ctx, store, clientName)
	if err != nil {
		return err
	}

	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		return err
	}
	aiClient, err := llm.NewClient(llmCfg)
	if err != nil {
		return err
	}
	defer func() { _ = aiClient.Close() }()

	miner, err := rules.NewMiner(store, aiClient, nil, rules.MinerConfig{MinGroupSize: minGroup})
	if err != nil {
		return err
	}

	report, err := miner.Mine(ctx, client.ID)
	if err != nil {
		return err
	}

	for _, result := range report.Results {
		line := fmt.Sprintf("%-30s accuracy=%.2f (%d/%d) %s",
			result.Rule.Name, result.Accuracy, result.Matches, result.TotalApplicable, result.Reason)
		if result.Accepted {
			fmt.Println(cli.Success(line))
		} else {
			fmt.Println(cli.SubtleStyle.Render("  rejected: " + line))
		}
	}
	fmt.Printf("\n%d accepted, %d rejected\n", report.Accepted, report.Rejected)
	return nil
}

func rulesSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <transaction-id>",
		Short: "Suggest rules from a single transaction (advisory, no gate)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientName, _ := cmd.Flags().GetString("client")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client, err := resolveClient(ctx, store, clientName)
			if err != nil {
				return err
			}

			llmCfg, err := config.LoadLLMConfig()
			if err != nil {
				return err
			}
			aiClient, err := llm.NewClient(llmCfg)
			if err != nil {
				return err
			}
			defer func() { _ = aiClient.Close() }()

			miner, err := rules.NewMiner(store, aiClient, nil, rules.MinerConfig{})
			if err != nil {
				return err
			}

			candidates, err := miner.Suggest(ctx, client.ID, args[0])
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Println("no suggestions")
				return nil
			}
			for _, c := range candidates {
				fmt.Printf("%s (%s, priority %d): %s\n",
					cli.BoldStyle.Render(c.Rule.Name), c.Confidence, c.Rule.Priority, c.Rule.Description)
				for _, cond := range c.Rule.Conditions {
					fmt.Printf("  when %s %s %v\n", cond.Field, cond.Operator, cond.Value)
				}
				for _, action := range c.Rule.Actions {
					fmt.Printf("  set %s = %v\n", action.Field, action.Value)
				}
			}
			return nil
		},
	}
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a client's rules in application order",
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

			ruleSet, err := store.ListRules(ctx, client.ID, !all)
			if err != nil {
				return err
			}
			if len(ruleSet) == 0 {
				fmt.Println("no rules")
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-5s %-30s %-10s %-9s %-7s", "ID", "NAME", "TYPE", "PRIORITY", "ACTIVE")))
			for _, r := range ruleSet {
				fmt.Printf("%-5d %-30s %-10s %-9d %-7t\n", r.ID, r.Name, r.Type, r.Priority, r.IsActive)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "include deactivated rules")
	return cmd
}

func rulesActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <rule-id>",
		Short: "Reactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRuleActive(cmd, args[0], true)
		},
	}
}

func rulesDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <rule-id>",
		Short: "Deactivate a rule (rules are never hard-deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRuleActive(cmd, args[0], false)
		},
	}
}

func setRuleActive(cmd *cobra.Command, idArg string, active bool) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", idArg)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetRuleActive(ctx, id, active); err != nil {
		return err
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Println(cli.Success(fmt.Sprintf("rule %d %s", id, state)))
	return nil
}

func rulesPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <rule-id> <priority>",
		Short: "Change a rule's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid priority %q", args[1])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdateRulePriority(ctx, id, priority); err != nil {
				return err
			}
			fmt.Println(cli.Success(fmt.Sprintf("rule %d priority set to %d", id, priority)))
			return nil
		},
	}
}
