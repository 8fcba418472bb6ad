package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/summary"
	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

type planColumn struct {
	Column    int    `json:"column"`
	Role      string `json:"role"`
	Offset    int    `json:"offset"`
	Width     int    `json:"width"`
	Levels    int    `json:"levels,omitempty"`
	Transform string `json:"transform,omitempty"`
}

type planReport struct {
	Columns    []planColumn `json:"columns"`
	MinColumns int          `json:"min_columns"`
	Expansion  int          `json:"expansion"`
	Width      int          `json:"width"`
	Layout     string       `json:"layout"`
	Unknown    string       `json:"unknown"`
}

func newInspectCmd() *cobra.Command {
	var (
		configFile  string
		summaryPath string
		asJSON      bool
		vf          vectorizerFlags
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the column plan for a summary and vectorizer settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(configFile)
			if err != nil {
				return err
			}
			if err := vf.apply(cmd.Flags(), &job.Vectorizer); err != nil {
				return err
			}
			if cmd.Flags().Changed("summary") {
				job.Summary = summaryPath
			}
			if job.Summary == "" {
				return errors.New(errors.ErrorTypeConfig, "--summary is required")
			}

			sum, err := summary.Load(job.Summary)
			if err != nil {
				return err
			}
			cfg, err := job.Vectorizer.Build()
			if err != nil {
				return err
			}
			v, err := vectorizer.Build(sum, cfg)
			if err != nil {
				return err
			}

			report := buildReport(v)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configFile, "config", "c", "", "Path to a YAML or JSON job file")
	fs.StringVarP(&summaryPath, "summary", "s", "", "Path to the column summary document")
	fs.BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	vf.bind(fs)

	return cmd
}

func buildReport(v *vectorizer.Vectorizer) planReport {
	cols := lo.Map(v.Plan(), func(p vectorizer.ColumnPlan, _ int) planColumn {
		pc := planColumn{
			Column: p.Column,
			Role:   p.Role.String(),
			Offset: p.Offset,
			Width:  p.Width,
			Levels: p.Levels,
		}
		if p.Role == vectorizer.NumericTransformed {
			pc.Transform = p.Transform.Kind.String()
		}
		return pc
	})
	return planReport{
		Columns:    cols,
		MinColumns: v.MinColumns(),
		Expansion:  v.Expansion(),
		Width:      v.Width(v.MinColumns()),
		Layout:     v.Layout().String(),
		Unknown:    v.Config().UnknownPolicy().String(),
	}
}

func printReport(w io.Writer, r planReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tROLE\tOFFSET\tWIDTH\tLEVELS\tTRANSFORM")
	for _, c := range r.Columns {
		offset := "-"
		if c.Offset >= 0 {
			offset = strconv.Itoa(c.Offset)
		}
		levels := "-"
		if c.Role == vectorizer.CategoricalOneHot.String() {
			levels = strconv.Itoa(c.Levels)
		}
		transform := c.Transform
		if transform == "" {
			transform = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", c.Column, c.Role, offset, c.Width, levels, transform)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nmin columns: %d  expansion: %d  width: %d  layout: %s  unknown: %s\n",
		r.MinColumns, r.Expansion, r.Width, r.Layout, r.Unknown)
	return err
}
