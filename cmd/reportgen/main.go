package main

// Render a report from an assessment file without the API:
//   go run ./cmd/reportgen render --input assessment.json --subject "Acme Corp" --offline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"report-backend/internal/llm"
	"report-backend/internal/llm/openai"
	"report-backend/internal/reports"
	"report-backend/internal/reports/assessment"
	"report-backend/internal/reports/builder"
	"report-backend/internal/reports/variants"
	"report-backend/internal/shared/config"
	"report-backend/internal/shared/telemetry"
	"report-backend/internal/shared/util"
)

type renderOptions struct {
	input         string
	subject       string
	variant       string
	out           string
	callToAction  string
	narrativeFile string
	variantsFile  string
	offline       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	defer telemetry.Sync()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "reportgen",
		Short:        "Render assessment reports from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(cfg), newVariantsCmd(cfg))
	return root
}

func newRenderCmd(cfg config.Config) *cobra.Command {
	opts := renderOptions{variantsFile: cfg.VariantsFile}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one report to an HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			narrator, err := cliNarrator(cfg, opts)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cfg, opts, narrator)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "assessment JSON file (- for stdin)")
	f.StringVarP(&opts.subject, "subject", "s", "", "subject name printed on the cover")
	f.StringVar(&opts.variant, "variant", "technology", "report variant key")
	f.StringVarP(&opts.out, "out", "o", "", "output file (defaults to a name derived from the subject)")
	f.StringVar(&opts.callToAction, "cta", "", "call to action overriding the variant default")
	f.StringVar(&opts.narrativeFile, "narrative-file", "", "HTML fragment used as the executive summary")
	f.StringVar(&opts.variantsFile, "variants-file", opts.variantsFile, "variant catalog YAML")
	f.BoolVar(&opts.offline, "offline", false, "skip the narrative provider")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newVariantsCmd(cfg config.Config) *cobra.Command {
	var variantsFile string
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List report variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := variants.LoadFile(variantsFile)
			if err != nil {
				return err
			}
			return printVariants(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.Flags().StringVar(&variantsFile, "variants-file", cfg.VariantsFile, "variant catalog YAML")
	return cmd
}

// cliNarrator picks the narrative source. A narrative file always wins; offline
// without one renders the fallback summary.
func cliNarrator(cfg config.Config, opts renderOptions) (llm.NarrativeGenerator, error) {
	if opts.narrativeFile != "" {
		raw, err := os.ReadFile(opts.narrativeFile)
		if err != nil {
			return nil, fmt.Errorf("read narrative: %w", err)
		}
		return llm.StaticClient{HTML: string(raw)}, nil
	}
	if opts.offline || strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewNarrativeClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return reports.NewRetryingNarrator(client), nil
}

func runRender(ctx context.Context, w io.Writer, cfg config.Config, opts renderOptions, narrator llm.NarrativeGenerator) error {
	raw, err := readInput(opts.input)
	if err != nil {
		return err
	}
	result, err := assessment.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode assessment: %w", err)
	}
	catalog, err := variants.LoadFile(opts.variantsFile)
	if err != nil {
		return err
	}

	b := builder.Builder{
		Narrator:         narrator,
		Catalog:          catalog,
		NarrativeTimeout: cfg.NarrativeTimeout,
	}
	out, err := b.Build(ctx, builder.Request{
		SubjectName:  opts.subject,
		VariantKey:   opts.variant,
		CallToAction: opts.callToAction,
		Result:       result,
	})
	if err != nil {
		return err
	}

	path := opts.out
	if path == "" {
		path = util.ReportFileName(opts.subject)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(out.HTML), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	summary := "provider"
	if out.NarrativeFallback {
		summary = "fallback"
	}
	fmt.Fprintf(w, "wrote %s (%d pages, %d sections, summary: %s)\n", path, out.PageCount, len(out.SectionTitles), summary)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assessment: %w", err)
	}
	return raw, nil
}

func printVariants(w io.Writer, catalog variants.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tPRIMARY\tSECONDARY")
	for _, v := range catalog.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Key, v.Title, joinCodes(v.Primary), joinCodes(v.Secondary))
	}
	return tw.Flush()
}

func joinCodes(codes []assessment.CategoryCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
