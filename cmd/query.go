package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/llm"
)

var (
	queryStream          bool
	queryDryRun          bool
	queryNumberDocuments int
	queryWhere           map[string]string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the added data",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	addQueryFlags(queryCmd)
	queryCmd.Flags().BoolVar(&queryDryRun, "dry-run", false, "print the prompt instead of calling the model")
	rootCmd.AddCommand(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&queryStream, "stream", false, "stream the answer as it is generated")
	cmd.Flags().IntVarP(&queryNumberDocuments, "number-documents", "n", 0, "number of contexts to retrieve")
	cmd.Flags().StringToStringVar(&queryWhere, "where", nil, "metadata filter (key=value)")
}

// queryOptions applies the shared query flags to cfg
func queryOptions(cmd *cobra.Command, cfg llm.Config) (llm.Config, []app.QueryOption) {
	if cmd.Flags().Changed("stream") {
		cfg.Stream = queryStream
	}
	if queryNumberDocuments > 0 {
		cfg.NumberDocuments = queryNumberDocuments
	}

	where := make(map[string]any, len(queryWhere))
	for k, v := range queryWhere {
		where[k] = v
	}
	opts := []app.QueryOption{app.WithWhere(where), app.WithStreamWriter(cmd.OutOrStdout())}
	return cfg, opts
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	c, cleanup, err := buildLocalApp(ctx, nodeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, opts := queryOptions(cmd, c.app.LLMConfig())
	if queryDryRun {
		opts = append(opts, app.DryRun())
	}

	answer, err := c.app.Query(ctx, strings.Join(args, " "), cfg, opts...)
	if err != nil {
		return err
	}
	printAnswer(cmd, answer)
	return nil
}

// printAnswer prints immediate answers. Streamed ones are already on stdout.
func printAnswer(cmd *cobra.Command, answer llm.Answer) {
	out := cmd.OutOrStdout()
	if a, ok := answer.(llm.Immediate); ok {
		fmt.Fprintln(out, color.New(color.FgCyan).Sprint(a.Content))
		return
	}
	fmt.Fprintln(out)
}
