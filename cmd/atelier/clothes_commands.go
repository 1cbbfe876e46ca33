package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/store"
	"atelier/internal/textutil"
)

const descriptionColumnWidth = 60

func newClothesCommand(ctx *commandContext) *cobra.Command {
	clothesCmd := &cobra.Command{
		Use:     "clothes",
		Aliases: []string{"wardrobe"},
		Short:   "Manage the clothing catalogue",
	}

	clothesCmd.AddCommand(newClothesListCommand(ctx))
	clothesCmd.AddCommand(newClothesAddCommand(ctx))
	clothesCmd.AddCommand(newClothesShowCommand(ctx))
	clothesCmd.AddCommand(newClothesDescribeCommand(ctx))
	clothesCmd.AddCommand(newClothesRemoveCommand(ctx))

	return clothesCmd
}

func newClothesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalogued clothes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.ListClothes(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clothes catalogued yet")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Image", "Uploaded", "Description"},
					clothingRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func clothingRows(items []*store.Clothing) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.ImageFilename,
			formatLocalTime(item.UploadTime),
			textutil.Snippet(item.Description, descriptionColumnWidth),
		})
	}
	return rows
}

func newClothesAddCommand(ctx *commandContext) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "add <image>",
		Short: "Upload a photo and describe it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer file.Close()

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				service, err := ctx.stylistService(cmd, cfg, st)
				if err != nil {
					return err
				}
				item, err := service.Upload(cmd.Context(), filepath.Base(path), file, strings.TrimSpace(baseURL))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, item)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d (%s): %s\n", item.ID, item.ImageFilename, item.Description)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL the LLM can fetch uploads from when paths.public_base_url is unset")
	return cmd
}

func newClothesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalogued item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				item, err := st.GetClothing(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("clothing %d: %w", id, store.ErrNotFound)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %d\n", item.ID)
				fmt.Fprintf(out, "Image:       %s\n", filepath.Join(cfg.Paths.UploadDir, item.ImageFilename))
				fmt.Fprintf(out, "Uploaded:    %s\n", formatLocalTime(item.UploadTime))
				fmt.Fprintf(out, "Description: %s\n", item.Description)
				return nil
			})
		},
	}
}

func newClothesDescribeCommand(ctx *commandContext) *cobra.Command {
	var text string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "describe <id>",
		Short: "Set a description, or ask the LLM to describe the photo again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if manual := strings.TrimSpace(text); manual != "" {
					if err := st.UpdateClothingDescription(cmd.Context(), id, manual); err != nil {
						return fmt.Errorf("clothing %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Updated #%d: %s\n", id, manual)
					return nil
				}
				service, err := ctx.stylistService(cmd, cfg, st)
				if err != nil {
					return err
				}
				item, err := service.Redescribe(cmd.Context(), id, strings.TrimSpace(baseURL))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated #%d: %s\n", item.ID, item.Description)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Description to store instead of asking the LLM")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL the LLM can fetch uploads from when paths.public_base_url is unset")
	return cmd
}

func newClothesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item and its photo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				service, err := ctx.stylistService(cmd, cfg, st)
				if err != nil {
					return err
				}
				if err := service.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d\n", id)
				return nil
			})
		},
	}
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func formatLocalTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}
