package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"spendlog/internal/config"
	"spendlog/internal/export"
	"spendlog/internal/reporting"
	"spendlog/internal/storage"
)

const barWidth = 40

type options struct {
	dbPath   string
	username string
	year     int
	types    []string
	dir      string
	name     string
	timezone string
	now      func() time.Time
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{now: time.Now}

	defaults, err := config.Load()
	if err != nil {
		defaults = &config.Config{DBPath: "spendlog.db", Timezone: "Local"}
	}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Export a user's yearly spending report",
		Long:          "Reads a user's transactions from the database and writes a yearly spending report as PDF, CSV or JSON, with a summary on the console.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.SetOut(stdout)

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", defaults.DBPath, "Path to database file")
	f.StringVarP(&opts.username, "user", "u", "", "Username whose transactions are reported")
	f.IntVar(&opts.year, "year", 0, "Calendar year to report (default: current year)")
	f.StringSliceVarP(&opts.types, "report-type", "y", []string{"pdf"}, "Report types: csv, json, pdf")
	f.StringVarP(&opts.dir, "dir", "d", "", "Directory to save the report files (default: current directory)")
	f.StringVarP(&opts.name, "report-name", "n", "spendlog_report", "Base name for the report files")
	f.StringVar(&opts.timezone, "timezone", defaults.Timezone, "Time zone used for month boundaries")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	formats, err := export.ParseFormats(opts.types)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}
	now := opts.now()
	year := opts.year
	if year == 0 {
		year = now.In(loc).Year()
	}

	if opts.dbPath != ":memory:" {
		if _, err := os.Stat(opts.dbPath); err != nil {
			return fmt.Errorf("database %s: %w", opts.dbPath, err)
		}
	}
	db, err := storage.NewDB(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := db.GetUserByUsername(ctx, opts.username)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("user %s not found", opts.username)
	}
	if err != nil {
		return err
	}

	svc := reporting.New(db, opts.now, loc)
	current, err := svc.YearReport(ctx, user.ID, year)
	if err != nil {
		return err
	}
	previous, err := svc.YearReport(ctx, user.ID, year-1)
	if err != nil {
		return err
	}

	rep := &export.Report{Owner: user.Username, GeneratedAt: now.In(loc), Current: current, Previous: previous}
	if err := printSummary(out, rep); err != nil {
		return err
	}

	dir := opts.dir
	if dir != "" {
		if dir, err = filepath.Abs(dir); err != nil {
			return err
		}
	}
	for _, f := range formats {
		path, err := export.ToFile(dir, opts.name, f, rep)
		if err != nil {
			return fmt.Errorf("export %s: %w", f, err)
		}
		fmt.Fprint(out, pterm.Success.Sprintfln("%s report saved to %s", strings.ToUpper(string(f)), path))
	}
	return nil
}

// printSummary draws the month table with proportional bars and the category table.
func printSummary(out io.Writer, rep *export.Report) error {
	if rep.Current.Total == 0 {
		fmt.Fprint(out, pterm.Warning.Sprintfln("No spending recorded for %d", rep.Current.Year))
	}

	var peak int64
	for _, v := range rep.Current.Months {
		peak = max(peak, v)
	}

	months := pterm.TableData{{"Month", strconv.Itoa(rep.Current.Year), "", strconv.Itoa(rep.Previous.Year)}}
	for i, label := range reporting.MonthLabels {
		v := rep.Current.Months[i]
		bar := ""
		if peak > 0 {
			bar = pterm.FgBlue.Sprint(strings.Repeat("█", int(v*barWidth/peak)))
		}
		months = append(months, []string{label, strconv.FormatInt(v, 10), bar, strconv.FormatInt(rep.Previous.Months[i], 10)})
	}
	months = append(months, []string{"Total", strconv.FormatInt(rep.Current.Total, 10), "", strconv.FormatInt(rep.Previous.Total, 10)})

	table, err := pterm.DefaultTable.WithHasHeader().WithData(months).Srender()
	if err != nil {
		return err
	}
	title := fmt.Sprintf("Spending %d · %s", rep.Current.Year, rep.Owner)
	fmt.Fprintln(out, pterm.DefaultBox.WithTitle(title).WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).Sprint(table))

	if len(rep.Current.Categories) == 0 {
		return nil
	}
	cats := pterm.TableData{{"Category", "Total"}}
	for _, c := range rep.Current.Categories {
		cats = append(cats, []string{c.Category, strconv.FormatInt(c.Total, 10)})
	}
	table, err = pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(cats).
		Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}
