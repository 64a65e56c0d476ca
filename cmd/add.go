package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/fsutil"
)

var (
	addDataType string
	addMetadata map[string]string
)

var addCmd = &cobra.Command{
	Use:   "add [source...]",
	Short: "Add text, files or directories to the app",
	Long: `Add chunks, embeds and stores each source. With --type text every argument
is the content itself. Directories are walked and every file is added with a
data type guessed from its extension unless --type is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addDataType, "type", "t", "", "data type: text, text_file or pdf_file")
	addCmd.Flags().StringToStringVarP(&addMetadata, "metadata", "m", nil, "metadata stored with every chunk (key=value)")
	rootCmd.AddCommand(addCmd)
}

type addItem struct {
	source   string
	dataType app.DataType
}

func collectSources(fs fsutil.FileStore, dataType string, args []string) ([]addItem, error) {
	var items []addItem
	for _, arg := range args {
		if app.DataType(dataType) == app.DataTypeText {
			items = append(items, addItem{source: arg, dataType: app.DataTypeText})
			continue
		}

		files, err := fs.ListFiles(arg)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			dt, err := app.ParseDataType(dataType, f)
			if err != nil {
				return nil, err
			}
			items = append(items, addItem{source: f, dataType: dt})
		}
	}
	return items, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	items, err := collectSources(fsutil.NewLocalFileStore(), addDataType, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	c, cleanup, err := buildLocalApp(ctx, nodeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	metadata := make(map[string]any, len(addMetadata))
	for k, v := range addMetadata {
		metadata[k] = v
	}

	bar := progressbar.Default(int64(len(items)), "adding")
	var failed int
	for _, item := range items {
		bar.Describe(item.source)
		if _, err := c.app.Add(ctx, item.source, item.dataType, metadata); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "\nfailed to add %s: %v\n", item.source, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	count, err := c.app.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d sources added, %d chunks stored\n", len(items)-failed, len(items), count)
	if failed > 0 {
		return fmt.Errorf("%d sources failed", failed)
	}
	return nil
}
