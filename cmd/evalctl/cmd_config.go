package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/service"
)

func newConfigCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the evaluation weights",
		Long: `Show or edit the evaluation weights stored on the platform.

Edits start from the stored configuration, print the result, and are only written
back with --save.`,
	}

	cmd.AddCommand(newConfigShowCommand(opts))
	cmd.AddCommand(newConfigEditCommand(opts, "set-weight <accuracy|time|progress|motivation> <value>", "Set one weight; the others rebalance to keep the sum at 1", 2,
		func(svc service.EvaluationConfigService, args []string) error {
			key, err := evaluation.ParseWeightKey(args[0])
			if err != nil {
				return err
			}
			value, err := parseRatio(args[1])
			if err != nil {
				return err
			}
			_, err = svc.SetWeight(key, value)
			return err
		}))
	cmd.AddCommand(newConfigEditCommand(opts, "set-alpha <value>", "Set the engagement weight alpha", 1,
		func(svc service.EvaluationConfigService, args []string) error {
			value, err := parseRatio(args[0])
			if err != nil {
				return err
			}
			svc.SetAlpha(value)
			return nil
		}))
	cmd.AddCommand(newConfigEditCommand(opts, "set-band <low|medium> <min> <max>", "Set a threshold band; reversed bounds are swapped", 3,
		func(svc service.EvaluationConfigService, args []string) error {
			band, err := evaluation.ParseBand(args[0])
			if err != nil {
				return err
			}
			minValue, err := parseRatio(args[1])
			if err != nil {
				return err
			}
			maxValue, err := parseRatio(args[2])
			if err != nil {
				return err
			}
			_, err = svc.SetBand(band, minValue, maxValue)
			return err
		}))
	cmd.AddCommand(newConfigEditCommand(opts, "set-period <days>", "Set the evaluation period length in days", 1,
		func(svc service.EvaluationConfigService, args []string) error {
			days, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid days %q", args[0])
			}
			svc.SetPeriodDays(days)
			return nil
		}))
	cmd.AddCommand(newConfigSaveCommand(opts))

	return cmd
}

func newConfigShowCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.configService()
			if err != nil {
				return err
			}
			resp := svc.Load(opts.requestContext(cmd.Context()), true)
			if !resp.Loaded {
				fmt.Fprintln(opts.stderr, "warning: platform configuration unavailable, showing defaults")
			}
			return opts.printConfig(cmd.OutOrStdout(), resp)
		},
	}
}

func newConfigEditCommand(opts *cliOptions, use, short string, nargs int, edit func(service.EvaluationConfigService, []string) error) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.configService()
			if err != nil {
				return err
			}
			ctx := opts.requestContext(cmd.Context())
			if resp := svc.Load(ctx, true); !resp.Loaded {
				return fmt.Errorf("platform configuration unavailable; refusing to edit defaults")
			}
			if err := edit(svc, args); err != nil {
				return err
			}
			if save {
				return opts.save(cmd, svc)
			}
			return opts.printConfig(cmd.OutOrStdout(), svc.Current())
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write the result back to the platform")
	return cmd
}

func newConfigSaveCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Re-save the stored configuration, normalised and rounded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.configService()
			if err != nil {
				return err
			}
			if resp := svc.Load(opts.requestContext(cmd.Context()), true); !resp.Loaded {
				return fmt.Errorf("platform configuration unavailable; refusing to save defaults")
			}
			return opts.save(cmd, svc)
		},
	}
}

func (o *cliOptions) save(cmd *cobra.Command, svc service.EvaluationConfigService) error {
	resp, err := svc.Save(o.requestContext(cmd.Context()))
	if err != nil {
		return &actionError{notice: resp.Notice}
	}
	if o.jsonOutput() {
		return o.printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Notice.Message)
	return o.printConfig(cmd.OutOrStdout(), dto.EvaluationConfigResponse{Config: resp.Config, WeightsSum: resp.Config.Sum(), Source: service.SourceRemote, Loaded: true})
}

func (o *cliOptions) printConfig(w io.Writer, resp dto.EvaluationConfigResponse) error {
	if o.jsonOutput() {
		return o.printJSON(w, resp)
	}

	c := resp.Config
	_, err := fmt.Fprintf(w, `alpha       %.3f
accuracy    %.2f
time        %.2f
progress    %.2f
motivation  %.2f
sum         %.2f
low band    %.2f .. %.2f
medium band %.2f .. %.2f
period      %d days
source      %s
`, c.Alpha, c.WeightAccuracy, c.WeightTime, c.WeightProgress, c.WeightMotivation, resp.WeightsSum,
		c.LowMin, c.LowMax, c.MedMin, c.MedMax, c.PeriodDays, resp.Source)
	return err
}

func parseRatio(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: expected a number between 0 and 1", raw)
	}
	return v, nil
}
