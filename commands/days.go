package commands

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-daystream/internal/application/feed"
	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/util"
)

var daysLimit int

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "List days with activity",
	RunE:  runDays,
}

func init() {
	rootCmd.AddCommand(daysCmd)

	daysCmd.Flags().IntVar(&daysLimit, "limit", 0,
		"Limit result count (0 = unlimited)")
}

func runDays(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	svc, err := feed.Open(feedConfig(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()

	days, err := svc.Days(cmd.Context())
	if err != nil {
		return err
	}
	if daysLimit > 0 && len(days) > daysLimit {
		days = days[:daysLimit]
	}

	out := cmd.OutOrStdout()
	if cfg.Output == "json" {
		data, err := sonic.ConfigStd.MarshalIndent(days, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if len(days) == 0 {
		_, err := fmt.Fprintln(out, "No activity")
		return err
	}

	for _, d := range days {
		var parts []string
		for _, kind := range model.SourceKinds {
			if n := d.ByKind[kind]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", kind, n))
			}
		}
		fmt.Fprintf(out, "%s  %s  (%s)\n",
			d.Day, util.PadString(util.Pluralize(d.Count, "item", "items"), 10, false), strings.Join(parts, ", "))
	}
	return nil
}
