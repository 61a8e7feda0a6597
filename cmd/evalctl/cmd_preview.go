package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-eval-console/internal/dto"
)

func newPreviewCommand(opts *cliOptions) *cobra.Command {
	var (
		users []int
		topic int
		week  string
		names map[string]string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run an evaluation preview for students and a topic",
		Long: `Run an evaluation preview on the platform and print each student's scores.

The period comes from --week (YYYY-Www); without it the platform default period applies.`,
		Example: `  evalctl preview --users 12,15 --topic 3 --week 2024-W10 --name 12=Dina`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := dto.PreviewInput{UserIDs: users, Week: week}
			if cmd.Flags().Changed("topic") {
				id := topic
				input.TopicID = &id
			}
			labels, err := parseNames(names)
			if err != nil {
				return err
			}
			input.Names = labels

			svc, err := opts.previewService()
			if err != nil {
				return err
			}

			resp, err := svc.Preview(opts.requestContext(cmd.Context()), input)
			if err != nil {
				if resp.Notice != nil {
					return &actionError{notice: *resp.Notice}
				}
				return err
			}

			if opts.jsonOutput() {
				return opts.printJSON(cmd.OutOrStdout(), resp)
			}
			return printPreview(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntSliceVar(&users, "users", nil, "Student ids, comma separated")
	cmd.Flags().IntVar(&topic, "topic", 0, "Topic id")
	cmd.Flags().StringVar(&week, "week", "", "ISO week YYYY-Www")
	cmd.Flags().StringToStringVar(&names, "name", nil, "Display label per student id, id=label")

	return cmd
}

func parseNames(raw map[string]string) (map[int]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(raw))
	for key, label := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("invalid --name key %q: student ids are numeric", key)
		}
		out[id] = label
	}
	return out, nil
}

func printPreview(w io.Writer, resp dto.PreviewResponse) error {
	if resp.Request != nil && resp.Request.HasPeriod() {
		fmt.Fprintf(w, "period %s .. %s\n", resp.Request.PeriodStart, resp.Request.PeriodEnd)
	}
	if resp.Notice != nil {
		fmt.Fprintf(w, "%s: %s\n", resp.Notice.Level, resp.Notice.Message)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tLEVEL\tCHANGE\t"+strings.ToUpper(strings.Join(resp.Charts.Labels, "\t")))
	for i, row := range resp.Rows {
		level := row.LevelAfter
		if level == "" {
			level = "-"
		}
		cells := []string{resp.Charts.Series[i].Label, level, row.LevelChange}
		for _, v := range resp.Charts.Series[i].Values {
			cells = append(cells, strconv.Itoa(v)+"%")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, h := range resp.Heatmaps {
		fmt.Fprintf(w, "activity %d: attempts %s solved %s\n", h.UserID, formatWeek(h.Attempts), formatWeek(h.Solved))
	}
	return nil
}

func formatWeek(values []float64) string {
	if values == nil {
		return "-"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
