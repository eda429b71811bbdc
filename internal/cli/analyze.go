package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/render/cascade"
)

// requestFile is the on-disk form of an analysis request.
type requestFile struct {
	Adapter string `json:"adapter" yaml:"adapter"`
	Mode    string `json:"mode" yaml:"mode"`
	Params  any    `json:"params" yaml:"params"`
}

// readRequestFile decodes a JSON or YAML request, chosen by extension
// (.yaml and .yml are YAML, everything else JSON). "-" reads JSON from r.
func readRequestFile(path string, stdin io.Reader) (requestFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return requestFile{}, fmt.Errorf("read request: %w", err)
	}

	var rf requestFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rf); err != nil {
			return requestFile{}, errors.InvalidInput("file", "invalid YAML: %v", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rf); err != nil {
			return requestFile{}, errors.InvalidInput("file", "invalid JSON: %v", err)
		}
	}
	return rf, nil
}

// request converts the decoded params into an adapter request.
func (rf requestFile) request() (adapter.Request, error) {
	req, err := adapter.NewRequest(rf.Mode, rf.Params)
	if err != nil {
		return adapter.Request{}, errors.InvalidInput("params", "cannot encode: %v", err)
	}
	return req, nil
}

func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		file, adapterName, mode string
		dotPath, svgPath        string
		detailed, horizontal    bool
		jsonOut, noCache        bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an adapter on a JSON or YAML request file",
		Long: `Analyze runs an adapter and reports the bottleneck, the ranking and the
recommendations. The request file holds {adapter, mode, params}; --adapter and
--mode override the file.`,
		Example: `  phi-engine analyze -f cascade.yaml
  phi-engine analyze -f drift.json --adapter calibration --json
  phi-engine analyze -f cascade.yaml --svg cascade.svg --detailed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rf, err := readRequestFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if adapterName != "" {
				rf.Adapter = adapterName
			}
			if mode != "" {
				rf.Mode = mode
			}
			if err := errors.ValidateName("adapter", rf.Adapter); err != nil {
				return err
			}
			req, err := rf.request()
			if err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			eng, err := c.newEngine(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer eng.Close()

			prog := newProgress(c.Logger)
			res, err := eng.Run(ctx, rf.Adapter, req)
			if err != nil {
				return err
			}
			prog.done("Analysis complete", "adapter", res.Adapter, "mode", res.Mode)

			w := cmd.OutOrStdout()
			if jsonOut {
				if err := writeJSONOut(w, res); err != nil {
					return err
				}
			} else {
				printResult(w, res)
			}
			return writeDiagrams(cmd, res, dotPath, svgPath, cascade.Options{Detailed: detailed, Horizontal: horizontal})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request file (.json, .yaml, .yml, or - for JSON on stdin)")
	cmd.Flags().StringVarP(&adapterName, "adapter", "a", "", "adapter name (overrides the file)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "adapter mode (overrides the file)")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write a Graphviz DOT diagram to this path")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write an SVG diagram to this path")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include D-values and contributions in diagram labels")
	cmd.Flags().BoolVar(&horizontal, "horizontal", false, "lay the diagram out left to right")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printResult(w io.Writer, res *adapter.Result) {
	fmt.Fprintln(w, StyleTitle.Render(res.Adapter)+" "+StyleDim.Render(res.Mode))

	if b := res.Bottleneck; b != nil {
		fmt.Fprintln(w, StyleBottleneck.Render(fmt.Sprintf("bottleneck: %s (%.1f%% of total D)", b.Name, b.ContributionPct)))
	}
	printKeyValue(w, "total D", fmtFloat(res.TotalD))
	printKeyValue(w, "consistency", fmt.Sprintf("%.3f", res.ConsistencyScore))

	if len(res.Hierarchy) > 0 {
		t := newTable("Rank", "Name", "D")
		for _, r := range res.Hierarchy {
			t.Row(strconv.Itoa(r.Rank), r.Name, fmtFloat(r.DValue))
		}
		fmt.Fprintln(w, t.Render())
	}
	for _, rec := range res.Recommendations {
		printInfo(w, "%s", rec)
	}
}

// writeDiagrams writes the DOT and SVG files requested by flags.
func writeDiagrams(cmd *cobra.Command, res *adapter.Result, dotPath, svgPath string, opts cascade.Options) error {
	if dotPath == "" && svgPath == "" {
		return nil
	}
	dot, err := cascade.ToDOT(res, opts)
	if err != nil {
		return err
	}
	w := cmd.ErrOrStderr()
	if dotPath != "" {
		if err := os.WriteFile(dotPath, []byte(dot), 0o644); err != nil {
			return err
		}
		printFile(w, dotPath)
	}
	if svgPath != "" {
		svg, err := cascade.RenderSVG(cmd.Context(), dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgPath, svg, 0o644); err != nil {
			return err
		}
		printFile(w, svgPath)
	}
	return nil
}
