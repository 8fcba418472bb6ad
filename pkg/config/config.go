package config

import (
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"

	"github.com/ajitpratap0/featurize/pkg/compression"
	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/formats"
	"github.com/ajitpratap0/featurize/pkg/logger"
	"github.com/ajitpratap0/featurize/pkg/observability"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/transform"
	"github.com/ajitpratap0/featurize/pkg/vector"
	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FEATURIZE"

// StdStream names standard input or output in Input.Path and Output.Path.
const StdStream = "-"

// JobConfig describes one encoding run.
type JobConfig struct {
	// Name labels logs and metrics; defaults to the input file name
	Name string `yaml:"name" json:"name"`
	// Summary is the path of the column summary document
	Summary string `yaml:"summary" json:"summary" validate:"required"`
	// Workers is the number of concurrent encoders
	Workers int `yaml:"workers" json:"workers" validate:"gte=0"`

	Input      InputConfig          `yaml:"input" json:"input"`
	Output     OutputConfig         `yaml:"output" json:"output"`
	Vectorizer VectorizerConfig     `yaml:"vectorizer" json:"vectorizer"`
	Logging    logger.Config        `yaml:"logging" json:"logging"`
	Tracing    observability.Config `yaml:"tracing" json:"tracing"`
	Metrics    MetricsConfig        `yaml:"metrics" json:"metrics"`
}

// InputConfig describes the CSV record source.
type InputConfig struct {
	Path        string `yaml:"path" json:"path" validate:"required"`
	Delimiter   string `yaml:"delimiter" json:"delimiter" validate:"omitempty,len=1"`
	Header      bool   `yaml:"header" json:"header"`
	Comment     string `yaml:"comment" json:"comment" validate:"omitempty,len=1"`
	Compression string `yaml:"compression" json:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd s2 deflate"`
}

// OutputConfig describes where vectors go.
type OutputConfig struct {
	Path string `yaml:"path" json:"path" validate:"required"`
	// Format is inferred from Path when empty
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=jsonl json ndjson avro arrow parquet"`
	// Compression wraps the whole output stream; inferred from Path when empty
	Compression string `yaml:"compression" json:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd s2 deflate"`
	// Codec is the Avro/Parquet block codec
	Codec     string `yaml:"codec" json:"codec"`
	BatchSize int    `yaml:"batch_size" json:"batch_size" split_words:"true" validate:"gte=0"`
}

// VectorizerConfig is the file form of vectorizer.Config.
type VectorizerConfig struct {
	// IDColumn is absent when records carry no identifier
	IDColumn    *int           `yaml:"id_column" json:"id_column" split_words:"true" validate:"omitempty,gte=0"`
	Ignored     []int          `yaml:"ignored,omitempty" json:"ignored,omitempty" validate:"dive,gte=0,lte=4294967295"`
	Transform   string         `yaml:"transform" json:"transform" validate:"omitempty,oneof=none identity z linear log"`
	Overrides   map[int]string `yaml:"overrides,omitempty" json:"overrides,omitempty" validate:"dive,keys,gte=0,endkeys,oneof=none identity z linear log"`
	Layout      string         `yaml:"layout" json:"layout" validate:"omitempty,oneof=dense sparse"`
	Unknown     string         `yaml:"unknown" json:"unknown" validate:"omitempty,oneof=zero bucket reject"`
	Normalize   bool           `yaml:"normalize" json:"normalize"`
	ColumnCount int            `yaml:"column_count" json:"column_count" split_words:"true" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; disabled when empty
	Addr string `yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
}

// DefaultJob returns a job with defaults for every optional field.
func DefaultJob() *JobConfig {
	return &JobConfig{
		Workers: runtime.NumCPU(),
		Output: OutputConfig{
			BatchSize: formats.DefaultOptions().BatchSize,
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Tracing: observability.DefaultConfig(),
	}
}

// LoadJob reads a job file, applies FEATURIZE_* overrides and validates the
// result.
func LoadJob(path string) (*JobConfig, error) {
	job := DefaultJob()
	if err := Load(path, job); err != nil {
		return nil, err
	}
	if err := job.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// ApplyEnv overwrites fields from FEATURIZE_* environment variables.
func (j *JobConfig) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, j); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid environment override")
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (j *JobConfig) Validate() error {
	if err := validate.Struct(j); err != nil {
		e := errors.Wrap(err, errors.ErrorTypeConfig, "invalid job configuration")
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			e = e.WithDetail("fields", lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fe.Namespace()
			}))
		}
		return e
	}
	return nil
}

// JobName returns Name, or the input file name when unset.
func (j *JobConfig) JobName() string {
	if j.Name != "" {
		return j.Name
	}
	if j.Input.Path == StdStream {
		return "stdin"
	}
	return baseName(j.Input.Path)
}

// CSV converts the input section to reader settings.
func (in InputConfig) CSV() record.CSVConfig {
	cfg := record.CSVConfig{HasHeader: in.Header}
	if in.Delimiter != "" {
		cfg.Delimiter, _ = utf8.DecodeRuneInString(in.Delimiter)
	}
	if in.Comment != "" {
		cfg.Comment, _ = utf8.DecodeRuneInString(in.Comment)
	}
	return cfg
}

// Algorithm returns the input compression, inferred from the path when unset.
func (in InputConfig) Algorithm() (compression.Algorithm, error) {
	if in.Compression == "" {
		return compression.FromPath(in.Path), nil
	}
	return compression.ParseAlgorithm(in.Compression)
}

// ResolveFormat returns the output format, inferred from the path when unset.
// Standard output defaults to JSONL.
func (out OutputConfig) ResolveFormat() (formats.Format, error) {
	if out.Format != "" {
		return formats.ParseFormat(out.Format)
	}
	if f, ok := formats.FromPath(out.Path); ok {
		return f, nil
	}
	if out.Path == StdStream {
		return formats.JSONL, nil
	}
	return "", errors.New(errors.ErrorTypeConfig, "cannot infer output format from path").
		WithDetail("path", out.Path)
}

// Algorithm returns the output stream compression, inferred from the path
// when unset.
func (out OutputConfig) Algorithm() (compression.Algorithm, error) {
	if out.Compression == "" {
		return compression.FromPath(out.Path), nil
	}
	return compression.ParseAlgorithm(out.Compression)
}

// Options returns the writer options for the output section.
func (out OutputConfig) Options() formats.Options {
	return formats.Options{BatchSize: out.BatchSize, Codec: out.Codec}
}

// Options converts the section to vectorizer options.
func (v VectorizerConfig) Options() ([]vectorizer.ConfigOption, error) {
	var opts []vectorizer.ConfigOption

	if v.IDColumn != nil {
		opts = append(opts, vectorizer.WithIDColumn(*v.IDColumn))
	}
	if len(v.Ignored) > 0 {
		opts = append(opts, vectorizer.WithIgnoredColumns(v.Ignored...))
	}

	def, err := transform.ParseKind(v.Transform)
	if err != nil {
		return nil, err
	}
	opts = append(opts, vectorizer.WithDefaultTransform(transform.Policy{Kind: def}))

	for col, name := range v.Overrides {
		k, err := transform.ParseKind(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid column transform").
				WithDetail("column", col)
		}
		opts = append(opts, vectorizer.WithTransform(col, transform.Policy{Kind: k}))
	}

	layout, err := vector.ParseLayout(v.Layout)
	if err != nil {
		return nil, err
	}
	opts = append(opts, vectorizer.WithLayout(layout))

	if v.Unknown != "" {
		u, err := vectorizer.ParseUnknownPolicy(v.Unknown)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vectorizer.WithUnknownPolicy(u))
	}

	opts = append(opts, vectorizer.WithCategoryNormalization(v.Normalize))
	if v.ColumnCount > 0 {
		opts = append(opts, vectorizer.WithColumnCount(v.ColumnCount))
	}
	return opts, nil
}

// Build validates the section through vectorizer.NewConfig.
func (v VectorizerConfig) Build() (*vectorizer.Config, error) {
	opts, err := v.Options()
	if err != nil {
		return nil, err
	}
	return vectorizer.NewConfig(opts...)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return path
}
