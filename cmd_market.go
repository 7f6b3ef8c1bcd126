// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"daytrader/calendar"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var (
	atTime      string
	jsonOutput  bool
	holidayFrom int
	holidayTo   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current market session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the time until the next pre-market session",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the exchange holidays in use",
	Args:  cobra.NoArgs,
	RunE:  runHolidays,
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, nextCmd} {
		c.Flags().StringVar(&atTime, "at", "", "evaluate at this RFC3339 time instead of now")
	}
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "print as json")
	holidaysCmd.Flags().IntVar(&holidayFrom, "from", 0, "first year to list")
	holidaysCmd.Flags().IntVar(&holidayTo, "to", 0, "last year to list")
	rootCmd.AddCommand(statusCmd, nextCmd, holidaysCmd)
}

func parseAt(cal *calendar.ExchangeCalendar) (time.Time, error) {
	if len(atTime) == 0 {
		return cal.Now().LocalTime, nil
	}
	t, err := time.Parse(time.RFC3339, atTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at: %w", err)
	}
	return t, nil
}

func printStatus(w io.Writer, s calendar.SessionStatus) {
	fmt.Fprintf(w, "%s (%s)\n", s.Session, s.Description)
	fmt.Fprintf(w, "Time:         %s\n", s.CurrentTimeLabel)
	if len(s.NextSessionHint) > 0 {
		fmt.Fprintf(w, "Next:         %s\n", s.NextSessionHint)
	}
	if s.Closure != calendar.ClosureNone {
		fmt.Fprintf(w, "Closed:       %s\n", s.Closure)
	}
	fmt.Fprintf(w, "Data:         %s\n", s.DataStrategy)
	fmt.Fprintf(w, "Auto refresh: %t\n", s.ShouldAutoRefresh)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	t, err := parseAt(a.Calendar())
	if err != nil {
		return err
	}
	status := a.Calendar().Classify(t)
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	t, err := parseAt(a.Calendar())
	if err != nil {
		return err
	}
	next, ok := a.Calendar().TimeUntilNextSession(t)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "market is open")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%dh %dm until pre-market opens at %s\n",
		next.Hours, next.Minutes, next.Start.Format("Mon, Jan 2, 2006 15:04 MST"))
	return nil
}

func runHolidays(cmd *cobra.Command, args []string) error {
	if holidayFrom > 0 && holidayTo > 0 && holidayTo < holidayFrom {
		return fmt.Errorf("--to %d is before --from %d", holidayTo, holidayFrom)
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	for _, d := range a.Calendar().Holidays().Dates() {
		if (holidayFrom > 0 && d.Year < holidayFrom) || (holidayTo > 0 && d.Year > holidayTo) {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", d, d.Weekday())
	}
	return nil
}
