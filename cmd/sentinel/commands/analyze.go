package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/causalstack/causal-sentinel/internal/cache"
	"github.com/causalstack/causal-sentinel/internal/config"
	"github.com/causalstack/causal-sentinel/internal/engine"
	"github.com/causalstack/causal-sentinel/internal/ingest"
	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/reporter"
	"github.com/causalstack/causal-sentinel/internal/repo"
	"github.com/causalstack/causal-sentinel/internal/services"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

var (
	metricsPath    string
	metricColumn   string
	eventsPath     string
	confounderCols []string
	outputPath     string
	lakeURL        string
	lakeFrom       string
	lakeTo         string
	refuteOverride int
	windowOverride int
	threshOverride float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-shot analysis over metric and event files",
	Long: `Analyze reads a daily metric CSV and a classified event CSV, detects
crashes, links each crash to candidate causes, estimates the causal daily
effect, and prints (or writes) one impact report per crash.

With --lake-url the inputs are fetched from a data-lake service instead of
local files; --from and --to bound the fetch window.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&metricsPath, "metrics", "metrics.csv", "path to the metric CSV (date column plus metric columns)")
	analyzeCmd.Flags().StringVar(&metricColumn, "metric", "daily_revenue", "name of the outcome metric column")
	analyzeCmd.Flags().StringVar(&eventsPath, "events", "events.csv", "path to the classified events CSV")
	analyzeCmd.Flags().StringSliceVar(&confounderCols, "confounder", nil, "additional confounder columns from the metrics file (repeatable)")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write reports as CSV to this path instead of printing a table")
	analyzeCmd.Flags().StringVar(&lakeURL, "lake-url", "", "fetch inputs from this data-lake base URL instead of local files")
	analyzeCmd.Flags().StringVar(&lakeFrom, "from", "", "fetch window start, YYYY-MM-DD (data lake only)")
	analyzeCmd.Flags().StringVar(&lakeTo, "to", "", "fetch window end, YYYY-MM-DD (data lake only)")
	analyzeCmd.Flags().IntVar(&refuteOverride, "refute-simulations", -1, "placebo simulations per estimate (-1: use config)")
	analyzeCmd.Flags().IntVar(&windowOverride, "window", 0, "baseline window in days (0: use config)")
	analyzeCmd.Flags().Float64Var(&threshOverride, "threshold", 0, "z-score crash threshold (0: use config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if windowOverride > 0 {
		cfg.Detection.Window = windowOverride
	}
	if threshOverride > 0 {
		cfg.Detection.Threshold = threshOverride
	}
	if refuteOverride >= 0 {
		cfg.Detection.RefuteSimulations = refuteOverride
	}

	req, err := buildRequest(cfg)
	if err != nil {
		return err
	}

	advisor, err := reporter.NewAdvisor(cfg.Advice.Path, logger)
	if err != nil {
		return err
	}

	pipeline := engine.NewPipeline(logger, cfg.Detection.AnalysisConfig(),
		engine.WithWorkers(cfg.Detection.Workers),
		engine.WithRefutation(cfg.Detection.RefuteSimulations),
		engine.WithAdvisor(advisor))
	analyzer := services.NewAnalyzer(logger, pipeline, cache.NewMemoryProvider(), cfg.Cache.ResultTTL)

	result, err := analyzer.Analyze(cmd.Context(), *req)
	if err != nil {
		return err
	}

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return utils.NewAppError("analyze", "create output file", err)
		}
		defer f.Close()
		if err := ingest.WriteReports(f, result); err != nil {
			return err
		}
		logger.Info("reports written", "path", outputPath, "crashes", len(result.Reports))
		return nil
	}

	return renderResult(req.Series, result)
}

// buildRequest assembles the analysis input from local CSVs or the data lake.
func buildRequest(cfg *config.Config) (*models.AnalysisRequest, error) {
	if lakeURL != "" {
		return buildLakeRequest(cfg)
	}

	series, err := ingest.LoadMetricSeries(metricsPath, metricColumn)
	if err != nil {
		return nil, err
	}
	events, err := ingest.LoadEvents(eventsPath)
	if err != nil {
		return nil, err
	}

	// Confounders ride in the same metrics file; a named column that is
	// absent is reported, not fatal.
	names := append(append([]string(nil), cfg.Detection.ConfounderColumns...), confounderCols...)
	confounders := make(map[string]models.MetricSeries, len(names))
	for _, name := range names {
		s, err := ingest.LoadMetricSeries(metricsPath, name)
		if err != nil {
			continue
		}
		confounders[name] = s
	}

	return &models.AnalysisRequest{
		Series:      series,
		Events:      events,
		Confounders: confounders,
		Config:      models.AnalysisConfig{ConfounderColumns: names},
	}, nil
}

func buildLakeRequest(cfg *config.Config) (*models.AnalysisRequest, error) {
	if lakeFrom == "" || lakeTo == "" {
		return nil, &utils.ValidationError{Field: "from/to", Msg: "required with --lake-url"}
	}
	start, err := utils.ParseDate(lakeFrom)
	if err != nil {
		return nil, &utils.ValidationError{Field: "from", Msg: err.Error()}
	}
	end, err := utils.ParseDate(lakeTo)
	if err != nil {
		return nil, &utils.ValidationError{Field: "to", Msg: err.Error()}
	}

	client := repo.NewDataLakeClient(lakeURL, cfg.DataLake.MetricsPath, cfg.DataLake.EventsPath,
		cfg.DataLake.Timeout, cache.NewMemoryProvider(), cfg.DataLake.CacheTTL)
	ctx := context.Background()

	series, err := client.FetchMetricSeries(ctx, metricColumn, start, end)
	if err != nil {
		return nil, err
	}
	events, err := client.FetchEvents(ctx, start, end)
	if err != nil {
		return nil, err
	}

	names := append(append([]string(nil), cfg.Detection.ConfounderColumns...), confounderCols...)
	confounders := make(map[string]models.MetricSeries, len(names))
	for _, name := range names {
		s, err := client.FetchMetricSeries(ctx, name, start, end)
		if err != nil {
			continue
		}
		confounders[name] = s
	}

	return &models.AnalysisRequest{
		Series:      series,
		Events:      events,
		Confounders: confounders,
		Config:      models.AnalysisConfig{ConfounderColumns: names},
	}, nil
}

// renderResult prints the run as colored tables, or a healthy summary when
// nothing crashed.
func renderResult(series models.MetricSeries, result models.AnalysisResult) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if len(result.Reports) == 0 {
		mean, std, min, max := seriesSummary(series)
		fmt.Printf("%s no crashes detected in %s (%d days)\n",
			green("OK"), result.Metric, series.Len())
		fmt.Printf("   mean %.2f  std %.2f  min %.2f  max %.2f\n", mean, std, min, max)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Crash", "Recovered", "Cause", "Lag", "Daily Effect", "Std Err", "Days", "Total Impact", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, report := range result.Reports {
		recovered := "ongoing"
		if report.Crash.RecoveredAt != nil {
			recovered = utils.FormatDate(*report.Crash.RecoveredAt)
		}
		cause, lag := "-", "-"
		if report.Cause != nil {
			cause = causeLabel(report.Cause)
			lag = strconv.Itoa(report.Cause.LagDays) + "d"
		}
		effect, stdErr := "-", "-"
		if report.Estimate != nil {
			effect = fmt.Sprintf("%.2f", report.Estimate.DailyEffect)
			if report.Estimate.StandardError != nil {
				stdErr = fmt.Sprintf("%.2f", *report.Estimate.StandardError)
			}
		}
		status := string(report.Status)
		switch report.Status {
		case models.StatusAttributed:
			status = red(status)
		case models.StatusInconclusive:
			status = yellow(status)
		}
		data = append(data, []string{
			utils.FormatDate(report.Crash.DetectedAt),
			recovered,
			cause,
			lag,
			effect,
			stdErr,
			strconv.Itoa(report.DurationDays),
			fmt.Sprintf("%.2f", report.TotalImpact),
			status,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, report := range result.Reports {
		if report.ConfidenceNote != "" {
			fmt.Printf("%s %s: %s\n", yellow("note"), utils.FormatDate(report.Crash.DetectedAt), report.ConfidenceNote)
		}
		for _, advice := range report.Advice {
			fmt.Printf("%s %s: %s\n", green("advice"), utils.FormatDate(report.Crash.DetectedAt), advice)
		}
	}

	if len(result.Patterns) > 0 {
		fmt.Println()
		patterns := tablewriter.NewWriter(os.Stdout)
		patterns.Header([]string{"Component", "Crashes", "Prevalence", "Avg Daily Effect", "Total Impact", "Last Seen"})
		var rows [][]string
		for _, p := range result.Patterns {
			rows = append(rows, []string{
				p.Component,
				strconv.Itoa(p.Occurrences),
				fmt.Sprintf("%.0f%%", p.Prevalence*100),
				fmt.Sprintf("%.2f", p.AvgDailyEffect),
				fmt.Sprintf("%.2f", p.TotalImpact),
				utils.FormatDate(p.LastSeen),
			})
		}
		if err := patterns.Bulk(rows); err != nil {
			return err
		}
		if err := patterns.Render(); err != nil {
			return err
		}
	}

	return nil
}

func causeLabel(cause *models.CandidateCause) string {
	if cause.Event.Component != "" {
		return fmt.Sprintf("%s/%s", cause.Event.Source, cause.Event.Component)
	}
	return string(cause.Event.Source)
}

func seriesSummary(series models.MetricSeries) (mean, std, min, max float64) {
	if series.Len() == 0 {
		return 0, 0, 0, 0
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range series.Points {
		mean += p.Value
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
	}
	mean /= float64(series.Len())
	for _, p := range series.Points {
		std += (p.Value - mean) * (p.Value - mean)
	}
	if series.Len() > 1 {
		std = math.Sqrt(std / float64(series.Len()-1))
	} else {
		std = 0
	}
	return mean, std, min, max
}
