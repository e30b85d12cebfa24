package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-daystream/internal/application/feed"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/data/store"
	"github.com/penwyp/go-daystream/internal/util"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load export files into the local database",
	Long: `Scans the export directory for memo, chat, bookmark and history files and upserts
every valid record into the SQLite database. Records are keyed by kind and id, so
importing an updated export replaces earlier versions of the same records.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()

	source := feed.NewDirSource(cfg.DataDir, cfg.Concurrency, util.GetTimeProvider().Location())
	defer source.Close()

	items, err := source.LoadAll(ctx)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	result, err := db.Import(ctx, cfg.DataDir, items)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	byKind := make(map[model.Kind]int)
	for _, item := range items {
		byKind[item.Kind]++
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s from %s into %s\n",
		util.Pluralize(result.Count, "record", "records"), cfg.DataDir, cfg.DBPath)
	for _, kind := range model.SourceKinds {
		if n := byKind[kind]; n > 0 {
			fmt.Fprintf(out, "  %s %d\n", util.PadString(string(kind), 10, true), n)
		}
	}
	fmt.Fprintf(out, "%d new, %d updated (batch %s)\n", result.Inserted, result.Updated, result.ID)

	util.LogInfo("Import complete",
		util.F("batch", result.ID), util.F("records", result.Count), util.F("duration", time.Since(start).String()))
	return nil
}
