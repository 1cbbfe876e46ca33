package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/imagesearch"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search Pinterest or Unsplash for outfit inspiration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := imagesearch.New(cfg.ImageSearch)
			results, err := client.Search(cmd.Context(), source, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string][]string{"results": results})
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No images found")
				return nil
			}
			for _, link := range results {
				fmt.Fprintln(out, link)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", imagesearch.SourcePinterest, "pinterest or unsplash")
	return cmd
}
