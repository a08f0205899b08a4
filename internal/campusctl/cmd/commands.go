package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/aggregator"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/assistant"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/lift"
)

func seatingArg(arg string) (entities.Category, error) {
	c, ok := entities.ParseCategory(arg)
	if !ok || !c.IsSeating() {
		return "", fmt.Errorf("%q is not parking, library or food", arg)
	}
	return c, nil
}

func newBestCmd(opts *options) *cobra.Command {
	var worst bool
	cmd := &cobra.Command{
		Use:   "best <parking|library|food>",
		Short: "Print the best (or worst) pick of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := seatingArg(args[0])
			if err != nil {
				return err
			}
			reg, err := opts.registry(cmd.Context())
			if err != nil {
				return err
			}
			s, err := reg.Snapshot(cmd.Context(), c, opts.scope)
			if err != nil {
				return err
			}
			score, _ := aggregator.ScoreFor(c)
			pick := aggregator.BestPick
			if worst {
				pick = aggregator.WorstPick
			}
			r, ok := pick(s.Resources, score)
			if !ok {
				return fmt.Errorf("no usable %s records for %s", c, opts.scope)
			}
			card := aggregator.NewCard(c, r, score)
			return opts.emit(cmd.OutOrStdout(), card, func(w io.Writer) {
				fmt.Fprintf(w, "%s  %d/%d free  score %.2f  %s\n", card.Name, card.Available, card.TotalCapacity, card.Score, card.Badge)
			})
		},
	}
	cmd.Flags().BoolVar(&worst, "worst", false, "Print the worst pick instead")
	return cmd
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <parking|library|food>",
		Short: "Classify every record of a category into tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := seatingArg(args[0])
			if err != nil {
				return err
			}
			reg, err := opts.registry(cmd.Context())
			if err != nil {
				return err
			}
			s, err := reg.Snapshot(cmd.Context(), c, opts.scope)
			if err != nil {
				return err
			}
			sum, _ := aggregator.Summarize(s)
			return opts.emit(cmd.OutOrStdout(), sum, func(w io.Writer) {
				for _, card := range sum.Items {
					mark := " "
					if sum.Best != nil && sum.Best.ID == card.ID {
						mark = "*"
					}
					fmt.Fprintf(w, "%s %-20s %3d%% full  %-16s", mark, card.Name, card.OccupancyPercent, card.Badge)
					if card.QueueBadge != "" {
						fmt.Fprintf(w, "  %s", card.QueueBadge)
					}
					fmt.Fprintln(w)
				}
				if sum.Skipped > 0 {
					fmt.Fprintf(w, "(%d malformed records skipped)\n", sum.Skipped)
				}
			})
		},
	}
}

func newLiftsCmd(opts *options) *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "lifts <destination>",
		Short: "Rank the lifts for a trip to a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := reg.Snapshot(cmd.Context(), entities.CategoryDestination, opts.scope)
			if err != nil {
				return err
			}
			dst, ok := lift.LookupDestination(catalog.Destinations, args[0])
			if !ok {
				if m := lift.FindDestinations(catalog.Destinations, args[0], 0); len(m) > 0 {
					labels := make([]string, len(m))
					for i, d := range m {
						labels[i] = d.Label
					}
					return fmt.Errorf("unknown destination %q, did you mean %s?", args[0], strings.Join(labels, ", "))
				}
				return fmt.Errorf("unknown destination %q", args[0])
			}
			s, err := reg.Snapshot(cmd.Context(), entities.CategoryElevator, opts.scope)
			if err != nil {
				return err
			}
			ranked := lift.RankInBuilding(s.Elevators, dst, from)
			return opts.emit(cmd.OutOrStdout(), ranked, func(w io.Writer) {
				if len(ranked) == 0 {
					fmt.Fprintf(w, "no lifts in building %s\n", dst.Building)
					return
				}
				for _, e := range ranked {
					fmt.Fprintf(w, "%-6s %3d  %-9s  %s\n", e.DisplayName(), e.Score, lift.BandFor(e.Score), strings.Join(e.Explanation, ", "))
				}
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "Floor you are on")
	return cmd
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry(cmd.Context())
			if err != nil {
				return err
			}
			router := assistant.New(assistant.Config{Snapshots: reg})
			var user *entities.User
			if opts.scope != "" {
				user = &entities.User{ID: "cli", Scope: opts.scope}
			}
			reply := router.Respond(cmd.Context(), user, strings.Join(args, " "))
			return opts.emit(cmd.OutOrStdout(), reply, func(w io.Writer) {
				fmt.Fprintln(w, reply.Text)
			})
		},
	}
}
