package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config) {
	version := GetVersion()
	build := GetBuild()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 64
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` 8888888b.  8888888888 8888888b.  8888888888`,
		` 888   Y88b 888        888   Y88b 888`,
		` 888    888 888        888    888 888`,
		` 888   d88P 8888888    888   d88P 8888888`,
		` 8888888P'  888        8888888P'  888`,
		` 888        888        888 T88b   888`,
		` 888        888        888  T88b  888`,
		` 888        8888888888 888   T88b 888`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s  PerfLens :: Comparative Asset Analytics%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  version    %s (build %s)\n", version, build)
	fmt.Fprintf(os.Stderr, "  listen     %s\n", serviceURL)
	fmt.Fprintf(os.Stderr, "  benchmark  %s (%s)\n", config.Analytics.Benchmark, config.Analytics.BenchmarkLabel)
	fmt.Fprintf(os.Stderr, "  env        %s\n", config.Environment)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
}
