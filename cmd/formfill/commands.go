package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/v0xg/formfill/internal/ai"
	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/api"
	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/executor"
	"github.com/v0xg/formfill/internal/form"
	"github.com/v0xg/formfill/internal/gifgen"
	"github.com/v0xg/formfill/internal/observability"
	"github.com/v0xg/formfill/internal/service"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newLauncher() *crawler.Launcher {
	return crawler.NewLauncher(crawler.Options{
		Width:             cfg.Browser.Width,
		Height:            cfg.Browser.Height,
		Bin:               cfg.Browser.Bin,
		ProfileDir:        cfg.Browser.ProfileDir,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		IdleTimeout:       cfg.Browser.IdleTimeout,
		IdleWindow:        cfg.Browser.IdleWindow,
		SettleTimeout:     cfg.Filler.SettleTimeout,
		SPAWait:           cfg.Browser.SPAWait,
	}, observability.GetLogger())
}

func newAnalyzer(opener crawler.Opener) *analyzer.Analyzer {
	return analyzer.New(opener, analyzer.Options{SettleDelay: cfg.Analyzer.SettleDelay}, observability.GetLogger())
}

func newGenerator() (*ai.Generator, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Model)
	if err != nil {
		return nil, fmt.Errorf("AI provider init failed: %w", err)
	}
	return ai.NewGenerator(provider, observability.GetLogger()), nil
}

func fillOptions() executor.Options {
	return executor.Options{
		Speed:      cfg.Filler.SpeedDuration(),
		Visible:    !cfg.Browser.Headless,
		SubmitHold: cfg.Filler.SubmitHold,
	}
}

// loadForm reads a saved descriptor, or discovers one when target is a URL
func loadForm(ctx context.Context, target string, opener crawler.Opener) (*form.Form, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		fmt.Printf("→ Analyzing %s... ", target)
		f, err := newAnalyzer(opener).Discover(ctx, target)
		if err != nil {
			fmt.Println("failed")
			return nil, err
		}
		fmt.Printf("done (found %d fields)\n", len(f.Fields))
		return f, nil
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var f form.Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", target, err)
	}
	return &f, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Println(string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func newAnalyzeCmd() *cobra.Command {
	var (
		output string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Discover the form on a page and print its descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := loadForm(ctx, args[0], newLauncher())
			if err != nil {
				return err
			}
			logVerbose("  Name: %s", f.Name)
			logVerbose("  Submit: %s", submitSummary(f.SubmitButton))

			if save {
				st, err := openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.CreateForm(ctx, f); err != nil {
					return err
				}
				fmt.Printf("→ Saved as %s\n", f.ID)
			}
			return writeJSON(output, f)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the descriptor to a file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Store the descriptor in the database")
	return cmd
}

func newFillCmd() *cobra.Command {
	var (
		valuesFile string
		generate   bool
		speed      int
		visible    bool
		dryRun     bool
		record     string
	)
	cmd := &cobra.Command{
		Use:   "fill <url|descriptor.json>",
		Short: "Fill and submit a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			launcher := newLauncher()

			f, err := loadForm(ctx, args[0], launcher)
			if err != nil {
				return err
			}

			values := map[string]string{}
			if generate {
				fmt.Printf("→ Generating values via %s... ", cfg.AI.Provider)
				gen, err := newGenerator()
				if err != nil {
					fmt.Println("failed")
					return err
				}
				values = gen.Values(ctx, f.Fields)
				fmt.Printf("done (%d values)\n", len(values))
			}
			if valuesFile != "" {
				data, err := os.ReadFile(valuesFile)
				if err != nil {
					return fmt.Errorf("failed to read values: %w", err)
				}
				var supplied map[string]string
				if err := json.Unmarshal(data, &supplied); err != nil {
					return fmt.Errorf("failed to parse values %s: %w", valuesFile, err)
				}
				for k, v := range supplied {
					values[k] = v
				}
			}
			for name, v := range values {
				logVerbose("  %s = %q", name, v)
			}

			opts := fillOptions()
			if cmd.Flags().Changed("speed") {
				opts.Speed = time.Duration(speed) * time.Millisecond
			}
			opts.Visible = opts.Visible || visible

			filler := executor.New(launcher, observability.GetLogger())

			if dryRun {
				fmt.Print("→ Planning fill... ")
				plan, err := filler.DryRun(ctx, f, values, opts)
				if err != nil {
					fmt.Println("failed")
					return err
				}
				fmt.Println("done")
				return writeJSON("", plan)
			}

			if record != "" {
				opts.Recorder = gifgen.NewRecorder(gifgen.DefaultOptions())
			}

			fmt.Println("→ Filling form...")
			res, err := filler.Fill(ctx, f, values, opts)
			printResult(res)
			if err != nil {
				return err
			}

			if opts.Recorder != nil && opts.Recorder.Len() > 0 {
				fmt.Printf("→ Encoding GIF (%d frames)... ", opts.Recorder.Len())
				size, err := opts.Recorder.Save(record)
				if err != nil {
					fmt.Println("failed")
					return fmt.Errorf("GIF encoding failed: %w", err)
				}
				fmt.Println("done")
				fmt.Printf("✓ Saved %s (%.1f MB)\n", record, float64(size)/(1024*1024))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesFile, "values", "", "JSON file mapping field names to values")
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate values for every fillable field")
	cmd.Flags().IntVar(&speed, "speed", 500, "Base delay between steps (ms)")
	cmd.Flags().BoolVar(&visible, "visible", false, "Show the browser window")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve locators without typing or submitting")
	cmd.Flags().StringVar(&record, "record", "", "Record the run as a GIF at this path")
	return cmd
}

func printResult(res *executor.Result) {
	if res == nil {
		return
	}
	for _, name := range res.Filled {
		fmt.Printf("  ✓ %s\n", name)
	}
	for _, s := range res.Skipped {
		if s.Error != "" {
			fmt.Printf("  - %s (%s: %s)\n", s.Name, s.Reason, s.Error)
			continue
		}
		fmt.Printf("  - %s (%s)\n", s.Name, s.Reason)
	}
	switch {
	case res.Submitted:
		fmt.Println("✓ Form submitted")
	case res.SubmitNotFound:
		fmt.Println("! Submit button not found, fields were filled only")
	default:
		fmt.Printf("✗ Stopped while %s\n", res.State)
	}
}

func newGenerateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate <url|descriptor.json>",
		Short: "Generate sample values for a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadForm(cmd.Context(), args[0], newLauncher())
			if err != nil {
				return err
			}
			gen, err := newGenerator()
			if err != nil {
				return err
			}
			return writeJSON(output, gen.Values(cmd.Context(), f.Fields))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the values to a file instead of stdout")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			gen, err := newGenerator()
			if err != nil {
				return err
			}

			launcher := newLauncher()
			svc := service.NewForms(st, newAnalyzer(launcher), executor.New(launcher, logger), gen, fillOptions(), logger)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			if cfg.Logger.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(svc, cfg.Server, logger)
			logger.Info("Starting server", zap.String("addr", addr), zap.String("ai_provider", cfg.AI.Provider))
			return api.Serve(ctx, addr, router, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

func submitSummary(s form.SubmitControl) string {
	if !s.Found() {
		return "not found"
	}
	if s.Text != "" {
		return fmt.Sprintf("%q (%s)", s.Text, s.XPath)
	}
	return s.XPath
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
