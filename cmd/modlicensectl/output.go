package main

import (
	"fmt"
	"io"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
)

func formatExpiry(v *models.TokenView) string {
	if v.ExpiresAt == nil {
		return "never"
	}
	return v.ExpiresAt.UTC().Format(time.RFC3339)
}

func printTokens(out io.Writer, views []models.TokenView) {
	fmt.Fprintf(out, "%-32s %-6s %-10s %-21s %-6s %s\n", "TOKEN", "TIER", "DURATION", "EXPIRES", "HWID", "STATUS")
	for i := range views {
		v := &views[i]
		status := "active"
		if v.IsExpired {
			status = "expired"
		}
		hwid := "-"
		if v.HWIDBound {
			hwid = "bound"
		}
		fmt.Fprintf(out, "%-32s %-6s %-10s %-21s %-6s %s\n",
			v.Token, v.Tier, v.DurationLabel, formatExpiry(v), hwid, status)
	}
}

func printOwners(out io.Writer, page *models.OwnerPage) {
	fmt.Fprintf(out, "%-20s %-24s %-6s %-7s %s\n", "OWNER", "USERNAME", "TIER", "TOKENS", "ACTIVE")
	for _, o := range page.Owners {
		fmt.Fprintf(out, "%-20s %-24s %-6s %-7d %d\n",
			o.OwnerID, o.Username, o.Tier, o.TokenCount, o.ActiveTokenCount)
	}
	fmt.Fprintf(out, "Page %d, %d of %d owner(s)\n", page.Page, len(page.Owners), page.Total)
}
