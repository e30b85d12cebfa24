package commands

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/store"
	"github.com/penwyp/go-daystream/internal/util"
)

var importsLimit int

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Show stored record totals and recent import batches",
	RunE:  runImports,
}

func init() {
	rootCmd.AddCommand(importsCmd)

	importsCmd.Flags().IntVar(&importsLimit, "limit", 10,
		"Number of recent batches to list")
}

type importsReport struct {
	Records map[model.Kind]int `json:"records"`
	Total   int                `json:"total"`
	Imports []store.Import     `json:"imports"`
}

func runImports(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	counts, err := db.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	imports, err := db.ListImports(ctx, importsLimit)
	if err != nil {
		return fmt.Errorf("failed to list imports: %w", err)
	}

	report := importsReport{Records: counts, Imports: imports}
	for _, n := range counts {
		report.Total += n
	}
	if report.Imports == nil {
		report.Imports = []store.Import{}
	}

	out := cmd.OutOrStdout()
	if cfg.Output == "json" {
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	var parts []string
	for _, kind := range model.SourceKinds {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", kind, n))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintf(out, "Stored: %s\n", util.Pluralize(0, "record", "records"))
	} else {
		fmt.Fprintf(out, "Stored: %s (%s)\n",
			util.Pluralize(report.Total, "record", "records"), strings.Join(parts, ", "))
	}

	if len(imports) == 0 {
		_, err := fmt.Fprintln(out, "No imports")
		return err
	}

	loc := util.GetTimeProvider().Location()
	fmt.Fprintln(out, "Recent imports:")
	for _, imp := range imports {
		fmt.Fprintf(out, "  %s  %s  %s  %s\n",
			imp.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			imp.ID,
			util.PadString(util.Pluralize(imp.Count, "record", "records"), 12, false),
			imp.Source)
	}
	return nil
}
