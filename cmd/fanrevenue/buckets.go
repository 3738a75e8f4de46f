package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fanrevenue/internal/bucket"
	"fanrevenue/internal/cli"
	"fanrevenue/internal/core"
	applog "fanrevenue/internal/log"
	"fanrevenue/internal/services"
)

var (
	creatorID   string
	displayName string
	year        int
	month       int
	headerRows  bool

	importCmd = &cobra.Command{
		Use:   "import FILE",
		Short: "Upload a month of transactions from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runImport),
	}

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "List a creator's buckets, or print one month's dashboard",
		RunE:  withApp(runShow),
	}

	customersCmd = &cobra.Command{
		Use:   "customers",
		Short: "Print the customer analysis of a month",
		RunE:  withApp(runCustomers),
	}

	calendarCmd = &cobra.Command{
		Use:   "calendar",
		Short: "Print the calendar heat maps of a month",
		RunE:  withApp(runCalendar),
	}

	deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete a month's bucket",
		RunE:  withApp(runDelete),
	}
)

func init() {
	for _, c := range []*cobra.Command{importCmd, showCmd, customersCmd, calendarCmd, deleteCmd} {
		c.Flags().StringVar(&creatorID, "creator", "", "creator id")
		c.Flags().IntVar(&year, "year", 0, "bucket year")
		c.Flags().IntVar(&month, "month", 0, "bucket month (1-12)")
		_ = c.MarkFlagRequired("creator")
	}
	for _, c := range []*cobra.Command{importCmd, customersCmd, calendarCmd, deleteCmd} {
		_ = c.MarkFlagRequired("year")
		_ = c.MarkFlagRequired("month")
	}
	importCmd.Flags().StringVar(&displayName, "display-name", "", "creator display name")
	importCmd.Flags().BoolVar(&headerRows, "rows", false, "input is a list of objects keyed by export headers")
}

// withApp loads configuration and wires the service around run.
func withApp(run func(cmd *cobra.Command, args []string, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadAndValidateConfig(logger)
		if err != nil {
			return err
		}
		app, err := cli.Bootstrap(cmd.Context(), cfg, logger.WithComponent(applog.ComponentCLI))
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Error("Failed to release resources", applog.FieldError, err)
			}
		}()
		return run(cmd, args, app)
	}
}

func runImport(cmd *cobra.Command, args []string, app *cli.App) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	decode := core.DecodeRawRecords
	if headerRows {
		decode = core.DecodeHeaderRows
	}
	raws, err := decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	b, err := app.Service.Upload(cmd.Context(), creatorID, displayName, year, month, raws)
	if err != nil && !errors.Is(err, services.ErrNotPersisted) {
		return err
	}
	printSummary(cmd.OutOrStdout(), []bucket.MonthlyBucket{b})
	return err
}

func runShow(cmd *cobra.Command, args []string, app *cli.App) error {
	if year != 0 || month != 0 {
		d, err := app.Service.Dashboard(cmd.Context(), creatorID, year, month)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), d)
	}

	buckets, err := app.Service.ListByCreator(cmd.Context(), creatorID)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), buckets)
	return nil
}

func runCustomers(cmd *cobra.Command, args []string, app *cli.App) error {
	key, err := bucket.NewKey(creatorID, year, month)
	if err != nil {
		return err
	}
	a, err := app.Service.Customers(cmd.Context(), key)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), a)
}

func runCalendar(cmd *cobra.Command, args []string, app *cli.App) error {
	cal, err := app.Service.Calendar(cmd.Context(), creatorID, year, month)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), cal)
}

func runDelete(cmd *cobra.Command, args []string, app *cli.App) error {
	existed, err := app.Service.Delete(cmd.Context(), creatorID, year, month)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: %s/%04d-%02d", services.ErrNotFound, creatorID, year, month)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %04d-%02d\n", creatorID, year, month)
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printSummary(w io.Writer, buckets []bucket.MonthlyBucket) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tREVENUE\tNET\tTRANSACTIONS\tCUSTOMERS\tUPDATED")
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			b.Key().Period(),
			core.FormatYen(b.Analysis.TotalRevenue),
			core.FormatYen(b.Analysis.NetRevenue),
			b.Analysis.TotalTransactions,
			b.Analysis.UniqueCustomers,
			b.LastModified.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
