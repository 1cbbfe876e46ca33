package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/textutil"
)

func newOutfitCommand(ctx *commandContext) *cobra.Command {
	outfitCmd := &cobra.Command{
		Use:   "outfit",
		Short: "Ask for and review outfit recommendations",
	}

	outfitCmd.AddCommand(newOutfitRecommendCommand(ctx))
	outfitCmd.AddCommand(newOutfitLatestCommand(ctx))
	outfitCmd.AddCommand(newOutfitHistoryCommand(ctx))

	return outfitCmd
}

func newOutfitRecommendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <style preference>",
		Short: "Record a style preference and suggest an outfit from the catalogue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			style := strings.TrimSpace(strings.Join(args, " "))
			if style == "" {
				return stylist.ErrStyleRequired
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				service, err := ctx.stylistService(cmd, cfg, st)
				if err != nil {
					return err
				}
				rec, err := service.Recommend(cmd.Context(), style)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rec)
				}
				printRecommendation(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
}

func newOutfitLatestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent recommendation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				rec, err := st.LatestRecommendation(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rec)
				}
				if rec == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No recommendations yet")
					return nil
				}
				printRecommendation(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
}

func newOutfitHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past recommendations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				recs, err := st.ListRecommendations(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recommendations yet")
					return nil
				}
				rows := make([][]string, 0, len(recs))
				for _, rec := range recs {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						formatLocalTime(rec.CreatedAt),
						textutil.Snippet(rec.OutfitDescription, descriptionColumnWidth),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Created", "Outfit"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	return cmd
}

func printRecommendation(out io.Writer, rec *store.Recommendation) {
	fmt.Fprintf(out, "Recommendation #%d (%s)\n\n", rec.ID, formatLocalTime(rec.CreatedAt))
	fmt.Fprintln(out, rec.OutfitDescription)
	if rec.Reason != "" {
		fmt.Fprintf(out, "\n%s\n", rec.Reason)
	}
}

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Inspect recorded style preferences",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List style preferences, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				prefs, err := st.ListPreferences(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, prefs)
				}
				if len(prefs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No style preferences recorded")
					return nil
				}
				rows := make([][]string, 0, len(prefs))
				for _, pref := range prefs {
					rows = append(rows, []string{
						strconv.FormatInt(pref.ID, 10),
						formatLocalTime(pref.CreatedAt),
						textutil.Snippet(pref.StyleText, descriptionColumnWidth),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Recorded", "Style"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")

	prefsCmd.AddCommand(listCmd)
	return prefsCmd
}
