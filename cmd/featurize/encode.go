package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurize/internal/pipeline"
	"github.com/ajitpratap0/featurize/pkg/compression"
	"github.com/ajitpratap0/featurize/pkg/config"
	"github.com/ajitpratap0/featurize/pkg/errors"
	"github.com/ajitpratap0/featurize/pkg/formats"
	"github.com/ajitpratap0/featurize/pkg/logger"
	"github.com/ajitpratap0/featurize/pkg/metrics"
	"github.com/ajitpratap0/featurize/pkg/observability"
	"github.com/ajitpratap0/featurize/pkg/record"
	"github.com/ajitpratap0/featurize/pkg/summary"
	"github.com/ajitpratap0/featurize/pkg/vectorizer"
)

func newEncodeCmd() *cobra.Command {
	var (
		configFile   string
		vf           vectorizerFlags
		summaryPath  string
		input        string
		output       string
		format       string
		compress     string
		codec        string
		header       bool
		delimiter    string
		workers      int
		logLevel     string
		metricsAddr  string
		trace        bool
		failOnReject bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a CSV file into feature vectors",
		Long: `Encode reads CSV records, vectorizes each one against the column summary and
writes the vectors as JSONL, Avro, Arrow or Parquet.

Settings come from an optional job file, FEATURIZE_* environment variables
and flags, in increasing precedence.

Example:
  featurize encode --summary summary.yaml --input train.csv --header \
    --id-column 0 --transform z --output vectors.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(configFile)
			if err != nil {
				return err
			}

			fs := cmd.Flags()
			if err := vf.apply(fs, &job.Vectorizer); err != nil {
				return err
			}
			if fs.Changed("summary") {
				job.Summary = summaryPath
			}
			if fs.Changed("input") {
				job.Input.Path = input
			}
			if fs.Changed("output") {
				job.Output.Path = output
			}
			if fs.Changed("format") {
				job.Output.Format = format
			}
			if fs.Changed("compression") {
				job.Output.Compression = compress
			}
			if fs.Changed("codec") {
				job.Output.Codec = codec
			}
			if fs.Changed("header") {
				job.Input.Header = header
			}
			if fs.Changed("delimiter") {
				job.Input.Delimiter = delimiter
			}
			if fs.Changed("workers") {
				job.Workers = workers
			}
			if fs.Changed("log-level") {
				job.Logging.Level = logLevel
			}
			if fs.Changed("metrics-addr") {
				job.Metrics.Addr = metricsAddr
			}
			if trace {
				job.Tracing.Exporter = observability.ExporterStdout
			}
			if job.Input.Path == "" {
				job.Input.Path = config.StdStream
			}
			if job.Output.Path == "" {
				job.Output.Path = config.StdStream
			}
			if err := job.Validate(); err != nil {
				return err
			}

			_, err = runEncode(cmd.Context(), job, failOnReject, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configFile, "config", "c", "", "Path to a YAML or JSON job file")
	fs.StringVarP(&summaryPath, "summary", "s", "", "Path to the column summary document")
	fs.StringVarP(&input, "input", "i", "", "Input CSV path, - for stdin")
	fs.StringVarP(&output, "output", "o", "", "Output path, - for stdout")
	fs.StringVarP(&format, "format", "f", "", "Output format: jsonl, avro, arrow, parquet (inferred from --output)")
	fs.StringVar(&compress, "compression", "", "Output stream compression: gzip, zstd, snappy, s2, lz4, deflate")
	fs.StringVar(&codec, "codec", "", "Avro/Parquet block codec")
	fs.BoolVar(&header, "header", false, "Input starts with a header line")
	fs.StringVar(&delimiter, "delimiter", "", "Input field delimiter (default ,)")
	fs.IntVarP(&workers, "workers", "w", 0, "Concurrent encoders (default NumCPU)")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.BoolVar(&trace, "trace", false, "Print OpenTelemetry spans to stderr")
	fs.BoolVar(&failOnReject, "fail-on-reject", false, "Stop at the first rejected record")
	vf.bind(fs)

	return cmd
}

// runEncode executes one job. stdin and stdout stand in for "-" paths.
func runEncode(ctx context.Context, job *config.JobConfig, failOnReject bool, stdin io.Reader, stdout, stderr io.Writer) (pipeline.Stats, error) {
	log, err := logger.New(job.Logging)
	if err != nil {
		return pipeline.Stats{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration")
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("job", job.JobName()))

	shutdown, err := observability.Init(job.Tracing, stderr)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	if job.Metrics.Addr != "" {
		stopMetrics := serveMetrics(job.Metrics.Addr, log)
		defer stopMetrics()
	}

	sum, err := summary.Load(job.Summary)
	if err != nil {
		return pipeline.Stats{}, err
	}
	cfg, err := job.Vectorizer.Build()
	if err != nil {
		return pipeline.Stats{}, err
	}
	v, err := vectorizer.Build(sum, cfg,
		vectorizer.WithLogger(log),
		vectorizer.WithReporter(vectorizer.MultiReporter{
			vectorizer.NewLogReporter(log),
			metrics.NewReporter(),
		}),
	)
	if err != nil {
		return pipeline.Stats{}, err
	}

	in, closeIn, err := openInput(job.Input, stdin)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer closeIn()

	reader, err := record.NewCSVReader(in, job.Input.CSV())
	if err != nil {
		return pipeline.Stats{}, err
	}

	out, err := openOutput(job.Output, stdout)
	if err != nil {
		return pipeline.Stats{}, err
	}

	d := pipeline.New(v, pipeline.WriterSink(out.writer), pipeline.Config{
		Name:         job.JobName(),
		Workers:      job.Workers,
		FailOnReject: failOnReject,
	}, log)

	stats, runErr := d.Run(ctx, pipeline.CSVSource(reader))
	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return stats, runErr
}

func openInput(in config.InputConfig, stdin io.Reader) (io.Reader, func(), error) {
	alg, err := in.Algorithm()
	if err != nil {
		return nil, nil, err
	}

	var (
		src     io.Reader = stdin
		file    *os.File
		release = func() {}
	)
	if in.Path != config.StdStream {
		file, err = os.Open(in.Path) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
				WithDetail("path", in.Path)
		}
		src = file
		release = func() { _ = file.Close() }
	}

	dec, err := compression.NewReader(src, alg)
	if err != nil {
		release()
		return nil, nil, err
	}
	return dec, func() {
		_ = dec.Close()
		release()
	}, nil
}

// output stacks a format writer on a compression stream on a file.
type output struct {
	writer formats.Writer
	stream io.WriteCloser
	file   *os.File
}

func openOutput(cfg config.OutputConfig, stdout io.Writer) (*output, error) {
	format, err := cfg.ResolveFormat()
	if err != nil {
		return nil, err
	}
	alg, err := cfg.Algorithm()
	if err != nil {
		return nil, err
	}

	o := &output{}
	dst := stdout
	if cfg.Path != config.StdStream {
		o.file, err = os.Create(cfg.Path) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
				WithDetail("path", cfg.Path)
		}
		dst = o.file
	}

	if o.stream, err = compression.NewWriter(dst, alg, compression.Default); err != nil {
		o.closeFile()
		return nil, err
	}
	if o.writer, err = formats.NewWriter(o.stream, format, cfg.Options()); err != nil {
		o.closeFile()
		return nil, err
	}
	return o, nil
}

// Close flushes the format, then the compression stream, then the file.
func (o *output) Close() error {
	err := o.writer.Close()
	if cerr := o.stream.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to flush compressed output")
	}
	if o.file != nil {
		if cerr := o.file.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close output")
		}
	}
	return err
}

func (o *output) closeFile() {
	if o.file != nil {
		_ = o.file.Close()
	}
}

func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
