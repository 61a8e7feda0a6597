package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
)

func addNowFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "now", "", "Reference date YYYY-MM-DD (default today)")
}

func referenceDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Now(), nil
	}
	date, err := evaluation.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q, expected YYYY-MM-DD", raw)
	}
	return date.Time, nil
}

func newRangeCommand(opts *cliOptions) *cobra.Command {
	var now string
	cmd := &cobra.Command{
		Use:       "range <today|7d|30d|week|month>",
		Short:     "Resolve a quick date preset",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"today", "7d", "last7", "30d", "last30", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := referenceDate(now)
			if err != nil {
				return err
			}
			r, err := evaluation.ResolvePreset(args[0], ref)
			if err != nil {
				return err
			}
			resp := dto.NewRangeResponse(r)
			resp.Preset = strings.ToLower(args[0])
			return opts.printRange(cmd.OutOrStdout(), resp)
		},
	}
	addNowFlag(cmd, &now)
	return cmd
}

func newWeekCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "week <YYYY-Www>",
		Short: "Resolve an ISO week to its Monday..Sunday range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			week := strings.TrimSpace(args[0])
			if _, _, ok := evaluation.ParseISOWeek(week); !ok {
				return fmt.Errorf("invalid week %q, expected YYYY-Www", week)
			}
			r, ok := evaluation.ResolveISOWeek(week)
			if !ok {
				return fmt.Errorf("%s does not exist in that ISO year", week)
			}
			resp := dto.NewRangeResponse(r)
			resp.Week = week
			return opts.printRange(cmd.OutOrStdout(), resp)
		},
	}
}

func newWeekPresetCommand(opts *cliOptions) *cobra.Command {
	var now string
	cmd := &cobra.Command{
		Use:       "week-preset <current|prev>",
		Short:     "Resolve the current or previous ISO week",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"current", "prev"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := referenceDate(now)
			if err != nil {
				return err
			}
			week, r, err := evaluation.WeekPreset(args[0], ref)
			if err != nil {
				return err
			}
			resp := dto.NewRangeResponse(r)
			resp.Preset = strings.ToLower(args[0])
			resp.Week = week
			return opts.printRange(cmd.OutOrStdout(), resp)
		},
	}
	addNowFlag(cmd, &now)
	return cmd
}

func (o *cliOptions) printRange(w io.Writer, resp dto.RangeResponse) error {
	if o.jsonOutput() {
		return o.printJSON(w, resp)
	}
	if resp.Week != "" {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d days\n", resp.Week, resp.Start, resp.End, resp.Days)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%d days\n", resp.Start, resp.End, resp.Days)
	return err
}
