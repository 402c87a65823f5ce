package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/schedule"
	"github.com/spf13/cobra"
)

type planOptions struct {
	release     string
	nextRelease string
	platforms   []string
	budget      string
	jsonOutput  bool
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the posting schedule for a release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			sched, err := schedule.Build(cfg)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sched)
			}
			renderSchedule(cmd.OutOrStdout(), sched)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.release, "release", "", "Release date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.nextRelease, "next-release", "", "Date of the following release (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.platforms, "platforms", []string{"tiktok"}, "Posting platforms, comma separated")
	cmd.Flags().StringVar(&opts.budget, "budget", "", "Weekly time budget: low, medium, high or very_high")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the schedule as JSON")
	_ = cmd.MarkFlagRequired("release")

	return cmd
}

func (o *planOptions) config() (schedule.Config, error) {
	release, err := time.Parse(time.DateOnly, o.release)
	if err != nil {
		return schedule.Config{}, errors.New("--release must be a YYYY-MM-DD date")
	}

	cfg := schedule.Config{
		ReleaseDate: release,
		TimeBudget:  schedule.BudgetTier(o.budget),
	}
	if o.nextRelease != "" {
		next, err := time.Parse(time.DateOnly, o.nextRelease)
		if err != nil {
			return schedule.Config{}, errors.New("--next-release must be a YYYY-MM-DD date")
		}
		cfg.NextReleaseDate = &next
	}

	for _, name := range o.platforms {
		p, err := schedule.ParsePlatform(name)
		if err != nil {
			return schedule.Config{}, err
		}
		cfg.Platforms = append(cfg.Platforms, p)
	}
	return cfg, nil
}

func renderSchedule(w io.Writer, sched *schedule.Schedule) {
	fmt.Fprintf(w, "Window %s to %s (%d weeks", sched.Window.Start.Format(time.DateOnly), sched.Window.End.Format(time.DateOnly), sched.DurationWeeks)
	if sched.Window.Clipped {
		fmt.Fprint(w, ", clipped by next release")
	}
	fmt.Fprintf(w, ")\nCadence %.2f posts/week (base %.2f), %d slots\n", sched.Cadence, sched.BaseCadence, sched.TotalSlots)

	if len(sched.Slots) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Date", "Day", "Week", "Platform", "Time"})
	for _, slot := range sched.Slots {
		tw.AppendRow(table.Row{
			strconv.Itoa(slot.Position),
			slot.PostingDate.Format(time.DateOnly),
			slot.PostingDate.Weekday().String()[:3],
			slot.WeekLabel,
			string(slot.Platform),
			slot.SuggestedTime,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	fmt.Fprintln(w, tw.Render())
}
