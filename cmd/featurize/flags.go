package main

import (
	"strconv"

	"github.com/spf13/pflag"

	"github.com/ajitpratap0/featurize/pkg/config"
	"github.com/ajitpratap0/featurize/pkg/errors"
)

// vectorizerFlags mirrors config.VectorizerConfig on the command line.
// Only flags the user set override the job file.
type vectorizerFlags struct {
	idColumn    int
	ignored     []int
	transform   string
	overrides   map[string]string
	layout      string
	unknown     string
	normalize   bool
	columnCount int
}

func (f *vectorizerFlags) bind(fs *pflag.FlagSet) {
	fs.IntVar(&f.idColumn, "id-column", -1, "Identifier column, -1 for none")
	fs.IntSliceVar(&f.ignored, "ignore", nil, "Columns to drop (comma separated)")
	fs.StringVar(&f.transform, "transform", "", "Default numeric transform: none, z, linear, log")
	fs.StringToStringVar(&f.overrides, "override", nil, "Per-column transform, e.g. 5=log,7=z")
	fs.StringVar(&f.layout, "layout", "", "Vector layout: dense or sparse")
	fs.StringVar(&f.unknown, "unknown", "", "Unknown category policy: zero, bucket, reject")
	fs.BoolVar(&f.normalize, "normalize", false, "NFKC-normalize and trim categorical values")
	fs.IntVar(&f.columnCount, "column-count", 0, "Expected record width, 0 to skip the exact check")
}

func (f *vectorizerFlags) apply(fs *pflag.FlagSet, v *config.VectorizerConfig) error {
	if fs.Changed("id-column") {
		if f.idColumn < 0 {
			v.IDColumn = nil
		} else {
			id := f.idColumn
			v.IDColumn = &id
		}
	}
	if fs.Changed("ignore") {
		v.Ignored = append([]int(nil), f.ignored...)
	}
	if fs.Changed("transform") {
		v.Transform = f.transform
	}
	if fs.Changed("override") {
		if v.Overrides == nil {
			v.Overrides = make(map[int]string, len(f.overrides))
		}
		for col, name := range f.overrides {
			n, err := strconv.Atoi(col)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "override column must be an integer").
					WithDetail("column", col)
			}
			v.Overrides[n] = name
		}
	}
	if fs.Changed("layout") {
		v.Layout = f.layout
	}
	if fs.Changed("unknown") {
		v.Unknown = f.unknown
	}
	if fs.Changed("normalize") {
		v.Normalize = f.normalize
	}
	if fs.Changed("column-count") {
		v.ColumnCount = f.columnCount
	}
	return nil
}

// loadJob starts from the job file when given, then applies environment and
// explicitly set flags.
func loadJob(path string) (*config.JobConfig, error) {
	job := config.DefaultJob()
	if path != "" {
		if err := config.Load(path, job); err != nil {
			return nil, err
		}
	}
	if err := job.ApplyEnv(); err != nil {
		return nil, err
	}
	return job, nil
}
