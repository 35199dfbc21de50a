// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package combine implements a command to combine
// the reports of several samples.
package combine

import (
	"fmt"
	"os"

	"github.com/js-arias/command"
	"github.com/js-arias/placetree/internal/cli"
	"github.com/js-arias/placetree/place"
	"github.com/js-arias/placetree/report"
)

var Command = &command.Command{
	Usage: "combine [-o|--output <file>] [--csv] <report-file>...",
	Short: "combine sample reports",
	Long: `
Command combine reads one or more sample reports in JSON format, as produced
by the command neighbors, and writes a single report that combines all the
samples, and the overall taxonomy summary.

The name of each sample is the name stored in the report or, if it is empty,
the file name without extension. If any report is malformed, the command
fails, indicating the sample with the error.

By default the combined report is printed in the standard output. With the
flag --output, or -o, the report will be written in the indicated file.

If the flag --csv is set, a single table with the neighbors of all samples
will be written instead of the JSON report.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var (
	output string
	asCSV  bool
)

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().BoolVar(&asCSV, "csv", false, "")
}

func run(c *command.Command, args []string) error {
	if len(args) == 0 {
		return c.UsageError("expecting report file")
	}

	reports := make([]*report.Report, 0, len(args))
	for _, a := range args {
		r, err := readReport(a)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}

	comb, err := report.Combine(reports)
	if err != nil {
		return err
	}

	write := comb.WriteJSON
	if asCSV {
		write = comb.Report("combined").WriteCSV
	}
	if output == "" {
		return write(c.Stdout())
	}
	return cli.WriteFile(output, write)
}

func readReport(name string) (*report.Report, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := report.ReadJSON(f, place.SampleName(name))
	if err != nil {
		return nil, fmt.Errorf("on file %q: %w", name, err)
	}
	return r, nil
}
