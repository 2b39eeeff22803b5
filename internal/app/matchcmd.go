package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reunite.city/matcher/internal/cli"
)

func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Generation timeout")
	asJSON := fs.Bool("json", false, "Print resulting matches as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	reportUUID := strings.TrimSpace(fs.Arg(0))
	if reportUUID == "" {
		fmt.Fprintln(os.Stderr, "Usage: matcher match [flags] <report-uuid>")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := newRuntime(ctx, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	matches, err := rt.engine.GenerateForReport(ctx, reportUUID)
	if err != nil {
		rt.logger.Error().Err(err).Str("report_uuid", reportUUID).Msg("match generation failed")
		fmt.Fprintf(os.Stderr, "Match generation failed: %v\n", err)
		return 1
	}

	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(matches); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode matches: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("Report %s: %d match(es)\n", reportUUID, len(matches))
	for _, m := range matches {
		fmt.Printf("  %s  %.3f  %s  (%s <-> %s)\n",
			m.MatchUUID, m.ScoreTotal, m.Status, m.SourceReportUUID, m.CandidateReportUUID)
	}
	return 0
}
