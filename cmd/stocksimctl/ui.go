package main

import (
	"io"

	"github.com/atharvakonge/stocksim/internal/models"
	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printLeaderboard(w io.Writer, lb models.Leaderboard, limit int) {
	if len(lb.Users) == 0 {
		warn.Fprintln(w, "no traders yet")
		return
	}

	accent.Fprintf(w, "%-5s %-20s %16s %16s %16s\n", "RANK", "USER", "NET WORTH", "HOLDINGS", "CASH")
	for i, e := range lb.Users {
		if limit > 0 && i >= limit {
			neutral.Fprintf(w, "... %d more\n", len(lb.Users)-limit)
			break
		}
		row := neutral
		if e.Rank == 1 {
			row = success
		}
		row.Fprintf(w, "%-5d %-20s %16s %16s %16s\n",
			e.Rank,
			truncate(e.Username, 20),
			models.FormatMoney(e.NetWorth),
			models.FormatMoney(e.PortfolioValue),
			models.FormatMoney(e.CashBalance),
		)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
