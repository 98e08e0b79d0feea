package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gyaneshwarpardhi/netrel/internal/autocorr"
	"github.com/gyaneshwarpardhi/netrel/internal/fragility"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/threat"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#5C7A84")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

var tierStyles = map[reliability.Tier]lipgloss.Style{
	reliability.TierCritical: errorStyle,
	reliability.TierHigh:     warnStyle,
	reliability.TierSystem:   titleStyle,
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func prob(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func renderReport(networkID string, rep *reliability.Report) string {
	rows := rep.Table()
	t := newTable("Node", "Reliability", "Failure", "Birnbaum", "Links", "Tier")
	for _, r := range rows {
		t.Row(r.NodeID, prob(r.Reliability), prob(r.FailureProbability),
			strconv.FormatFloat(r.Birnbaum, 'f', 6, 64), strconv.Itoa(r.Connections), string(r.Tier))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 5 && row >= 0 && row < len(rows) {
			if s, ok := tierStyles[rows[row].Tier]; ok {
				return s.Padding(0, 1)
			}
		}
		return cellStyle
	})

	return strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("Network %s: system reliability %s", networkID, prob(rep.SystemReliability))),
		t.String(),
	}, "\n")
}

func renderFragility(networkID string, threshold int, steps []fragility.StepResult) string {
	t := newTable("Step", "Removed", "Remaining", "Reliability", "Product", "Connected", "Status")
	for _, s := range steps {
		_, msg := fragility.CheckThreshold(s.RemainingCount, threshold)
		t.Row(strconv.Itoa(s.Step), s.Removed, strconv.Itoa(s.RemainingCount),
			prob(s.Reliability), prob(s.ProductReliability), strconv.FormatBool(s.Connected), msg)
	}
	out := []string{
		titleStyle.Render(fmt.Sprintf("Fragility of %s (critical threshold %d)", networkID, threshold)),
		t.String(),
	}
	if len(steps) == 0 {
		out = append(out, mutedStyle.Render("no node in the removal order belongs to the network"))
	} else if steps[len(steps)-1].CriticalThresholdReached {
		out = append(out, errorStyle.Render("critical threshold reached, removal stopped"))
	}
	return strings.Join(out, "\n")
}

func renderThreats(networkID string, seed uint64, baseline float64, events []threat.Event, rep *reliability.Report) string {
	out := []string{
		titleStyle.Render(fmt.Sprintf("Threat simulation on %s (seed %d)", networkID, seed)),
	}
	if len(events) == 0 {
		out = append(out, mutedStyle.Render("no threat struck"))
	} else {
		t := newTable("Threat", "Target", "Impact", "Before", "After")
		for _, ev := range events {
			t.Row(string(ev.Kind), ev.Target, prob(ev.Impact), prob(ev.Before), prob(ev.After))
		}
		out = append(out, t.String())
	}
	out = append(out, fmt.Sprintf("system reliability %s → %s", prob(baseline), prob(rep.SystemReliability)))
	return strings.Join(out, "\n")
}

func renderDistribution(networkID string, dist []reliability.StateProbability) string {
	t := newTable("State", "Probability")
	total := 0.0
	for _, s := range dist {
		t.Row(s.State, strconv.FormatFloat(s.Probability, 'e', 6, 64))
		total += s.Probability
	}
	return strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("State distribution of %s (%d states)", networkID, len(dist))),
		t.String(),
		mutedStyle.Render("total " + prob(total)),
	}, "\n")
}

func renderDurbinWatson(res autocorr.Result) string {
	t := newTable("n", "d", "dL", "dU", "Verdict")
	t.Row(strconv.Itoa(res.N), strconv.FormatFloat(res.Statistic, 'f', 4, 64),
		strconv.FormatFloat(res.Bounds.Lower, 'f', 2, 64), strconv.FormatFloat(res.Bounds.Upper, 'f', 2, 64),
		string(res.Verdict))
	return t.String()
}
