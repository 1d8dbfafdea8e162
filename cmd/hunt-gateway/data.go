package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored record as one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			doc, err := st.Export(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace stored collections with those present in a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}
			var doc store.Document
			if err := json.NewDecoder(r).Decode(&doc); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			if err := st.Import(cmd.Context(), doc); err != nil {
				return err
			}
			// An imported roster counts as initialization.
			if err := st.MarkInitialized(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("import complete",
				zap.Int("users", len(doc.Users)),
				zap.Int("questions", len(doc.Questions)),
				zap.Int("hunt_responses", len(doc.HuntResponses)),
			)
			return nil
		},
	}
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default roster and question bank into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			seeded, err := store.Seed(cmd.Context(), st)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already initialized")
			}
			return nil
		},
	}
}

func newScenariosCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List builtin and custom scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(st)

			all, err := scenario.NewCatalog(st).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tLINES\tBASELINE\tCUSTOM")
			for _, sc := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%t\n", sc.ID, sc.Title, len(sc.AccountData), sc.BaselineTotal(), sc.IsCustom)
			}
			return tw.Flush()
		},
	}
}
