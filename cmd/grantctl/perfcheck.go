package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const defaultThreshold = 0.30

// trackedMetrics lists the benchmarks and units compared by perfcheck.
var trackedMetrics = map[string][]string{
	"BenchmarkVerifyTokenEnvelope": {"ns/op", "allocs/op"},
	"BenchmarkVerifyWithKeyring":   {"ns/op", "allocs/op"},
	"BenchmarkCreateHS256":         {"ns/op"},
	"BenchmarkVerifyRotation":      {"ns/op"},
}

type sampleSet map[string]map[string][]float64

func newPerfCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfcheck",
		Short: "Compare two `go test -bench` outputs and fail on regressions",
		Long: `Compare the median of each tracked benchmark metric in --candidate against
--baseline. A metric slower by more than --threshold (0.30 = +30%) fails the check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baselinePath, _ := cmd.Flags().GetString("baseline")
			candidatePath, _ := cmd.Flags().GetString("candidate")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			return runPerfCheck(cmd.OutOrStdout(), baselinePath, candidatePath, threshold)
		},
	}
	cmd.Flags().String("baseline", "", "path to baseline benchmark output")
	cmd.Flags().String("candidate", "", "path to candidate benchmark output")
	cmd.Flags().Float64("threshold", defaultThreshold, "maximum allowed regression ratio")
	return cmd
}

func runPerfCheck(out io.Writer, baselinePath, candidatePath string, threshold float64) error {
	if baselinePath == "" || candidatePath == "" {
		return errors.New("--baseline and --candidate are required")
	}
	if threshold < 0 {
		return errors.New("--threshold must be >= 0")
	}

	baseline, err := parseBenchmarkFile(baselinePath)
	if err != nil {
		return fmt.Errorf("parse baseline: %w", err)
	}
	candidate, err := parseBenchmarkFile(candidatePath)
	if err != nil {
		return fmt.Errorf("parse candidate: %w", err)
	}

	names := make([]string, 0, len(trackedMetrics))
	for name := range trackedMetrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	fmt.Fprintln(out, "benchmark metric baseline candidate delta")
	for _, name := range names {
		for _, metric := range trackedMetrics[name] {
			base, cand := baseline[name][metric], candidate[name][metric]
			if len(base) == 0 || len(cand) == 0 {
				// untracked in one run; nothing to compare
				continue
			}

			baseMedian, candMedian := median(base), median(cand)
			if baseMedian <= 0 {
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", name, metric))
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			fmt.Fprintf(out, "%s %s %.3f %.3f %+0.2f%%\n", name, metric, baseMedian, candMedian, delta*100)
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, metric, delta*100, threshold*100))
			}
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("performance regression threshold exceeded:\n  - %s", strings.Join(failures, "\n  - "))
	}
	return nil
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file)
}

func parseBenchmarks(r io.Reader) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := trackedMetrics[name]; !ok {
			continue
		}
		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			samples[name][fields[i+1]] = append(samples[name][fields[i+1]], value)
		}
	}
	return samples, scanner.Err()
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
