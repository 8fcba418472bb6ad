// Package config loads featurize job files.
//
// A job file names the column summary, the CSV input, the output file and the
// vectorizer settings. Files are YAML (or JSON when the name ends in .json),
// support ${VAR_NAME} environment substitution, and are validated after
// FEATURIZE_* environment overrides are applied.
//
// # Usage
//
//	job, err := config.LoadJob("job.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	opts, err := job.Vectorizer.Options()
//	cfg, err := vectorizer.NewConfig(opts...)
//
// # Job File
//
//	name: churn-train
//	summary: ${DATA_DIR}/summary.yaml
//	workers: 8
//	input:
//	  path: ${DATA_DIR}/train.csv
//	  header: true
//	output:
//	  path: out/train.parquet
//	  codec: zstd
//	vectorizer:
//	  id_column: 0
//	  ignored: [3]
//	  transform: z
//	  overrides:
//	    5: log
//	  layout: sparse
//	  unknown: bucket
//	  normalize: true
//	logging:
//	  level: debug
//
// # Environment Overrides
//
// Overrides use the FEATURIZE prefix and the section path, for example
// FEATURIZE_WORKERS, FEATURIZE_SUMMARY, FEATURIZE_INPUT_PATH,
// FEATURIZE_OUTPUT_FORMAT, FEATURIZE_VECTORIZER_LAYOUT and
// FEATURIZE_METRICS_ADDR.
package config
