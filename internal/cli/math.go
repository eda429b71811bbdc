package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/engine"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// parseFloats parses positional arguments as numbers, naming the offending one.
func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("values[%d]", i), "not a number: %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("dimensions[%d]", i), "not an integer: %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) transformCommand() *cobra.Command {
	var (
		mode    string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "transform <value>...",
		Short: "Map values to D-space (or back)",
		Long: `Transform maps each value with D(x) = -ln(x)/ln(phi).

Modes:
  d_space    D(x), values must be > 0 (default)
  inverse    x = phi^(-D)
  phi_power  phi^n for integer n`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFloats(args)
			if err != nil {
				return err
			}
			e := engine.Default()

			var out []float64
			switch mode {
			case "d_space":
				out, err = e.Transform(values)
			case "inverse":
				out = e.Inverse(values)
			case "phi_power":
				out = make([]float64, len(values))
				for i, v := range values {
					out[i] = e.ScaleMap(int(v)).PhiPower
				}
			default:
				err = errors.InvalidInput("mode", "want d_space, inverse or phi_power, got %q", mode)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSONOut(w, map[string]any{"original": values, "transformed": out, "mode": mode})
			}
			t := newTable("x", mode)
			for i := range values {
				t.Row(fmtFloat(values[i]), fmtFloat(out[i]))
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "d_space", "transform mode (d_space, inverse, phi_power)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func (c *CLI) validateCommand() *cobra.Command {
	var expected, tolerance float64
	cmd := &cobra.Command{
		Use:   "validate <coefficient>...",
		Short: "Check that coefficients sum to an expected value",
		Example: `  phi-engine validate 0.618034 0.236068 0.145898 --expected 1
  phi-engine validate 0.5 0.4 --expected 1 --tolerance 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("expected") {
				return errors.InvalidInput("expected", "required")
			}
			terms, err := parseFloats(args)
			if err != nil {
				return err
			}
			v, err := analyzer.Validate(terms, expected, tolerance)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printVerdict(w, v.Valid, "sum rule %s", map[bool]string{true: "holds", false: "violated"}[v.Valid])
			printKeyValue(w, "actual sum", fmtFloat(v.Sum))
			printKeyValue(w, "expected sum", fmtFloat(v.Expected))
			printKeyValue(w, "deviation", fmt.Sprintf("%.3f ppm (tolerance %g)", v.DeviationPPM, v.TolerancePPM))
			printKeyValue(w, "missing term", fmtFloat(analyzer.FindMissing(terms, expected)))
			return nil
		},
	}
	cmd.Flags().Float64VarP(&expected, "expected", "e", 0, "expected sum (required)")
	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", analyzer.DefaultTolerancePPM, "tolerance in ppm")
	return cmd
}

func (c *CLI) decomposeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <dimension>",
		Short: "Factor a dimension over the Fibonacci basis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := parseInts(args)
			if err != nil {
				return err
			}
			d, err := analyzer.Decompose(dims[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "%d = %s", d.N, d.Form)
			printKeyValue(w, "structure", d.Classification)
			printKeyValue(w, "group", d.Group)
			if d.KnownForm != "" {
				printKeyValue(w, "known form", d.KnownForm)
			}
			return nil
		},
	}
}

func (c *CLI) hierarchyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy <dimension>...",
		Short: "Rank dimensions by structural significance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := parseInts(args)
			if err != nil {
				return err
			}
			ranks, err := analyzer.Hierarchy(dims)
			if err != nil {
				return err
			}
			t := newTable("Dimension", "Score", "Group", "Form")
			for _, r := range ranks {
				form := r.Form
				if form == "" {
					form = "—"
				}
				t.Row(strconv.Itoa(r.Dimension), strconv.Itoa(r.Score), r.Group, form)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <x>",
		Short: "Run the closure and conservation identities on x",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xs, err := parseFloats(args)
			if err != nil {
				return err
			}
			res, err := engine.Default().Check(xs[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, ck := range []struct {
				name string
				c    analyzer.Check
			}{{"D-space closure", res.Closure}, {"energy conservation", res.Conservation}} {
				printVerdict(w, ck.c.Valid, "%s", ck.name)
				printDetail(w, "value %s, expected %s, residual %.3g", fmtFloat(ck.c.Value), fmtFloat(ck.c.Expected), ck.c.Residual)
			}
			if !res.Valid() {
				return errors.Domain("x = %g fails the consistency checks", xs[0])
			}
			return nil
		},
	}
}
