// Package ui provides cyberpunk-styled console output for the HPN LLM Gateway.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASCII ART BANNER - Cyberpunk Theme
// ══════════════════════════════════════════════════════════════════════════════

// bannerWidth is the inner width of the banner box.
const bannerWidth = 96

var hpnArt = [6]string{
	"██╗  ██╗██████╗ ███╗   ██╗",
	"██║  ██║██╔══██╗████╗  ██║",
	"███████║██████╔╝██╔██╗ ██║",
	"██╔══██║██╔═══╝ ██║╚██╗██║",
	"██║  ██║██║     ██║ ╚████║",
	"╚═╝  ╚═╝╚═╝     ╚═╝  ╚═══╝",
}

var gatewayArt = [6]string{
	" ██████╗  █████╗ ████████╗███████╗██╗    ██╗ █████╗ ██╗   ██╗",
	"██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝██║    ██║██╔══██╗╚██╗ ██╔╝",
	"██║  ███╗███████║   ██║   █████╗  ██║ █╗ ██║███████║ ╚████╔╝ ",
	"██║   ██║██╔══██║   ██║   ██╔══╝  ██║███╗██║██╔══██║  ╚██╔╝  ",
	"╚██████╔╝██║  ██║   ██║   ███████╗╚███╔███╔╝██║  ██║   ██║   ",
	" ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝   ",
}

// PrintBanner displays the ASCII art startup banner with cyberpunk styling.
func PrintBanner(version string) {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	border := strings.Repeat("═", bannerWidth)

	fmt.Fprintln(Output)
	cyan.Fprintln(Output, "╔"+border+"╗")

	for i := range hpnArt {
		cyan.Fprint(Output, "║  ")
		hiCyan.Fprint(Output, hpnArt[i])
		dim.Fprint(Output, "    ")
		magenta.Fprint(Output, gatewayArt[i])
		cyan.Fprintln(Output, "   ║")
	}

	cyan.Fprintln(Output, "╠"+border+"╣")

	info := fmt.Sprintf("🛰  LLM GATEWAY  │  ONE API, MANY MODELS  │  %s", version)
	cyan.Fprint(Output, "║  ")
	yellow.Fprint(Output, "🛰  LLM GATEWAY")
	dim.Fprint(Output, "  │  ")
	white.Fprint(Output, "ONE API, MANY MODELS")
	dim.Fprint(Output, "  │  ")
	white.Fprint(Output, version)
	fmt.Fprint(Output, strings.Repeat(" ", max(bannerWidth-2-runewidth.StringWidth(info), 0)))
	cyan.Fprintln(Output, "║")

	cyan.Fprintln(Output, "╚"+border+"╝")
	fmt.Fprintln(Output)
}

// PrintMiniBanner displays a smaller, simpler banner for constrained terminals.
func PrintMiniBanner(version string) {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(Output)
	cyan.Fprintln(Output, "╔══════════════════════════════════════╗")
	cyan.Fprint(Output, "║  ")
	magenta.Fprint(Output, "HPN GATEWAY")
	yellow.Fprint(Output, " 🛰 ")
	cyan.Fprintf(Output, "%-20s", version)
	cyan.Fprintln(Output, "║")
	cyan.Fprintln(Output, "╚══════════════════════════════════════╝")
	fmt.Fprintln(Output)
}

// PrintStartupBanner prints the full banner when columns fits it and the mini
// banner otherwise. columns <= 0 means the width is unknown.
func PrintStartupBanner(version string, columns int) {
	if columns > 0 && columns < bannerWidth+2 {
		PrintMiniBanner(version)
		return
	}
	PrintBanner(version)
}
