package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/service"

	"github.com/spf13/cobra"
)

// cliCaller is the identity the tool acts as. It may confirm any batch.
var cliCaller = importer.Caller{ID: "catalogctl", Name: "catalogctl", Admin: true}

type importOptions struct {
	file           string
	mode           string
	stockMode      string
	yes            bool
	allowIdentical string
}

func newImportCmd(open serviceOpener) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Preview a CSV or XLSX product sheet and optionally apply it",
		Long: `Previews a product sheet against the catalog and prints one line per row.

With --yes the staged batch is confirmed right away. Rows that need an
explicit acknowledgement are applied only when listed in --allow-identical.

Examples:
  catalogctl import --file products.xlsx
  catalogctl import --file stock.csv --mode update_only --stock-mode delta --yes
  catalogctl import --file products.csv --yes --allow-identical 3,7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			return runImport(cmd, svc, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to a .csv or .xlsx file")
	cmd.Flags().StringVar(&opts.mode, "mode", "upsert", "create_only, update_only or upsert")
	cmd.Flags().StringVar(&opts.stockMode, "stock-mode", "replace", "replace or delta")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Confirm the batch after previewing")
	cmd.Flags().StringVar(&opts.allowIdentical, "allow-identical", "", "Comma separated row numbers to accept despite a near-identical product")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(cmd *cobra.Command, svc service.ImportService, opts importOptions) error {
	allowed, err := parseRows(opts.allowIdentical)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.file, err)
	}

	ctx := cmd.Context()
	res, err := svc.Preview(ctx, service.PreviewRequest{
		Filename:  filepath.Base(opts.file),
		Data:      data,
		Mode:      opts.mode,
		StockMode: opts.stockMode,
	}, cliCaller)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printPreview(out, res)

	if res.BatchID == "" {
		return fmt.Errorf("nothing to import: every row was skipped or rejected")
	}
	if !opts.yes {
		fmt.Fprintf(out, "\nbatch %s staged until %s, rerun with --yes to apply\n", res.BatchID, res.ExpiresAt.Format("15:04:05"))
		return nil
	}

	outcome := svc.Confirm(ctx, service.ConfirmRequest{
		BatchID:            res.BatchID,
		Checksum:           res.Checksum,
		AllowIdenticalRows: allowed,
	}, cliCaller)
	if !outcome.OK() {
		for _, e := range outcome.Errors {
			fmt.Fprintf(out, "row %d: %s\n", e.Row, e.Message)
		}
		return fmt.Errorf("import %s: %w", outcome.Kind, outcome.Err())
	}

	fmt.Fprintf(out, "\napplied: %d created, %d updated\n", outcome.Created, outcome.Updated)
	return nil
}

func printPreview(out io.Writer, res *service.PreviewResult) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tACTION\tSKU\tNAME\tDETAIL")
	for _, pr := range res.Preview {
		detail := strings.Join(pr.Errors, "; ")
		if detail == "" && pr.Conflict != nil {
			detail = pr.Conflict.Message
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", pr.Row, pr.Status, pr.Action, pr.SKU, pr.Name, detail)
	}
	tw.Flush()

	s := res.Summary
	fmt.Fprintf(out, "\ncreates=%d updates=%d skips=%d errors=%d needs_confirmation=%d\n",
		s.Creates, s.Updates, s.Skips, s.Errors, s.NeedsConfirmation)
}

func parseRows(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var rows []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 2 {
			return nil, fmt.Errorf("invalid row number %q in --allow-identical", part)
		}
		rows = append(rows, n)
	}
	return rows, nil
}
