package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/config"
	"github.com/ledgerworks/taxpass/internal/executor"
	"github.com/ledgerworks/taxpass/internal/llm"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the classification passes over a client's transactions",
		Long: `Drive eligible transactions through the payee, category, and
business/personal classification passes. Runs are resumable: interrupted
or errored passes are picked up again on the next invocation. Use
--start-row/--end-row to bound a run, --from-pass to resume at a later
pass, and --force to reclassify already-completed passes.`,
		RunE: runProcess,
	}

	cmd.Flags().String("client", "", "client name")
	cmd.Flags().Int("start-row", 0, "first transaction row to process (ordered by date, id)")
	cmd.Flags().Int("end-row", 0, "row to stop before (0 = unbounded)")
	cmd.Flags().String("from-pass", "payee", "pass to start from (payee, category, business)")
	cmd.Flags().Bool("force", false, "reprocess passes that are already completed")
	cmd.Flags().Int("workers", 5, "concurrent transaction workers")

	return cmd
}

func parsePassFlag(name string) (model.Pass, error) {
	for p := model.PassPayee; p <= model.PassBusiness; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pass %q (expected payee, category, or business)", name)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	clientName, _ := cmd.Flags().GetString("client")
	startRow, _ := cmd.Flags().GetInt("start-row")
	endRow, _ := cmd.Flags().GetInt("end-row")
	fromPassName, _ := cmd.Flags().GetString("from-pass")
	force, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")

	fromPass, err := parsePassFlag(fromPassName)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
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
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = aiClient.Close() }()

	filter := service.ProcessingFilter{StartRow: startRow, EndRow: endRow, Force: force}

	total, err := store.GetTransactionCount(ctx, client.ID)
	if err != nil {
		return err
	}
	if endRow > 0 && endRow-startRow < total {
		total = endRow - startRow
	}
	bar := cli.NewProgressBar(total, "Classifying transactions...", os.Stderr)

	exec, err := executor.New(store, aiClient, nil, executor.Config{
		Workers:  workers,
		FromPass: fromPass,
		OnProgress: func(int) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	stats, err := exec.Run(ctx, client.ID, filter)
	if stats != nil {
		fmt.Println()
		fmt.Print(stats.Summary())
	}
	if err != nil {
		return err
	}

	fmt.Println(cli.Success("classification run complete"))
	return nil
}
