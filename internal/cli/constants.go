package cli

import (
	"fmt"
	"sort"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/pkg/constants"
	"github.com/Cloudhabil/phi-engine/pkg/ladder"
)

func (c *CLI) constantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "constants",
		Aliases: []string{"const"},
		Short:   "Query the constant table",
	}
	cmd.AddCommand(c.constantsListCommand())
	cmd.AddCommand(c.constantsGetCommand())
	cmd.AddCommand(c.constantsBrowseCommand())
	cmd.AddCommand(c.constantsScoreCommand())
	return cmd
}

func (c *CLI) constantsListCommand() *cobra.Command {
	var (
		sector, query string
		best          int
		jsonOut       bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List constants, optionally filtered",
		Example: `  phi-engine constants list --sector electroweak
  phi-engine constants list --query theta
  phi-engine constants list --best 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := constants.Search(sector, query)
			if best > 0 {
				entries = constants.Best(best)
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSONOut(w, map[string]any{"constants": entries, "total": len(entries)})
			}
			if len(entries) == 0 {
				printInfo(w, "No constants match")
				return nil
			}
			t := newTable("Name", "Value", "Experimental", "Unit", "Sector", "ppm")
			for _, e := range entries {
				t.Row(e.Name, fmtFloat(e.Value), fmtFloat(e.Experimental), e.Unit, e.Sector, fmtPPM(e))
			}
			fmt.Fprintln(w, t.Render())
			printDetail(w, "%d constants", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sector, "sector", "s", "", "filter by sector")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name substring")
	cmd.Flags().IntVar(&best, "best", 0, "show the n closest non-exact predictions instead")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	_ = cmd.RegisterFlagCompletionFunc("sector", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return constants.Sectors(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (c *CLI) constantsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one constant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := constants.Get(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, StyleTitle.Render(e.Name))
			printKeyValue(w, "formula", e.Formula)
			printKeyValue(w, "value", fmtFloat(e.Value)+" "+e.Unit)
			printKeyValue(w, "experimental", fmtFloat(e.Experimental)+" "+e.Unit)
			printKeyValue(w, "deviation", fmtPPM(e))
			printKeyValue(w, "sector", e.Sector)
			printKeyValue(w, "D(value)", fmtFloat(e.DValue))
			return nil
		},
	}
}

func (c *CLI) constantsBrowseCommand() *cobra.Command {
	var sector string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse constants interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(NewConstantsModel(sector),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&sector, "sector", "s", "", "initial sector")
	return cmd
}

func (c *CLI) constantsScoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Summarize prediction accuracy",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := constants.Score()
			w := cmd.OutOrStdout()
			printKeyValue(w, "constants", strconv.Itoa(sc.Total))
			printKeyValue(w, "non-exact", strconv.Itoa(sc.NonExact))
			printKeyValue(w, "ppm range", fmt.Sprintf("%.1f .. %.1f", sc.MinPPM, sc.MaxPPM))
			printKeyValue(w, "mean ppm", fmt.Sprintf("%.1f", sc.MeanPPM))

			sectors := make([]string, 0, len(sc.Sectors))
			for s := range sc.Sectors {
				sectors = append(sectors, s)
			}
			sort.Strings(sectors)
			t := newTable("Sector", "Constants")
			for _, s := range sectors {
				t.Row(s, strconv.Itoa(sc.Sectors[s]))
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}
}

func (c *CLI) ladderCommand() *cobra.Command {
	var (
		nMax     int
		labelled bool
	)
	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Print the phi^n energy ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			rungs, err := ladder.Full(nMax)
			if err != nil {
				return err
			}
			t := newTable("n", "phi^n", "Energy (GeV)", "Label")
			for _, r := range rungs {
				if labelled && r.Label == "" {
					continue
				}
				t.Row(strconv.Itoa(r.N), fmtFloat(r.PhiPower), fmtFloat(r.EnergyGeV), r.Label)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&nMax, "n-max", "n", ladder.DefaultRungs, fmt.Sprintf("highest rung (1..%d)", ladder.MaxRungs))
	cmd.Flags().BoolVar(&labelled, "labelled", false, "show only rungs with a known scale")
	return cmd
}
