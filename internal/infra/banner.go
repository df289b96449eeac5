package infra

import (
	"fmt"
	"io"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// BannerMode describes what a run trades against.
func BannerMode(cfg *Config, secrets Secrets) (desc, color string) {
	switch {
	case cfg.Trading.Mode == ModePaper:
		return "PAPER SIMULATION", ColorCyan
	case !secrets.HasPrivateKey():
		return "LIVE ADAPTER, MOCK LEDGER", ColorCyan
	case cfg.Trading.Testnet:
		return "TESTNET (PLAY MONEY)", ColorYellow
	default:
		return "REAL MONEY TRADING", ColorRed
	}
}

// PrintBanner displays the startup banner with mode-specific warnings
func PrintBanner(w io.Writer, cfg *Config, secrets Secrets) {
	desc, color := BannerMode(cfg, secrets)

	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s"+format+"%s\n", append(append([]any{color}, args...), ColorReset)...)
	}

	fmt.Fprintln(w)
	line("###########################################################")
	line("#   🚀 %-50s#", cfg.App.Name)
	line("#   MODE:    %-45s#", cfg.Trading.Mode)
	line("#   TYPE:    %-45s#", desc)
	line("#   VERSION: %-45s#", cfg.App.Version)
	if color == ColorRed {
		fmt.Fprintf(w, "%s#   ⚠️  WARNING: YOU ARE TRADING WITH REAL MONEY  ⚠️      #%s\n", ColorRed, ColorReset)
	}
	line("###########################################################")
	fmt.Fprintln(w)
}
