// Package nebulaml provides a service that configures, trains and serves
// machine learning pipelines through a table-in, table-out interface.
//
// A model moves through four states: configured, features defined, trained
// and (implicitly) serving predictions. Every operation takes a table of
// rows whose first column names the model and answers with a table whose
// descriptor names its columns.
//
// # Architecture
//
// A pipeline is a chain of three stages fitted together:
//
//  1. Preprocessing: per-column encoding driven by the feature contract.
//     Categorical columns are one-hot encoded or hashed into a fixed width;
//     numeric columns are imputed and scaled.
//  2. Reduction: an optional dimensionality reduction (PCA, IncrementalPCA
//     or TruncatedSVD).
//  3. Estimation: a classifier or regressor chosen by name with keyword
//     arguments.
//
// Fitted pipelines are serialized into versioned, compressed snapshots and
// kept in a file or PostgreSQL store. A small LRU cache holds recently used
// models in memory.
//
// # Quick Start
//
//	nebula-ml invoke configure <<'EOF'
//	[["iris", "estimator=LogisticRegression", "scaler=StandardScaler", ""]]
//	EOF
//
//	nebula-ml serve --store-dir ./models --listen :8080
//	curl -X POST localhost:8080/v1/operations/get-features \
//	    -d '{"rows": [["iris"]]}'
//
// # Key Packages
//
//	internal/service   - Operation handlers and the model registry
//	internal/pipeline  - Preprocessing, reduction and estimation stages
//	internal/httpapi   - HTTP transport
//	pkg/algorithms     - Estimators, scalers and reducers
//	pkg/features       - Feature contracts and value conversion
//	pkg/kwargs         - keyword=value|type argument strings
//	pkg/table          - Cells, tables and inbound schemas
//	pkg/store          - Snapshot codec, file and PostgreSQL stores
//	pkg/cache          - Generic LRU cache
//	pkg/config         - Service configuration
//	pkg/errors         - Structured error handling
//	pkg/logger         - Structured logging and per-call debug logs
//	pkg/metrics        - Prometheus metrics
//
// # Configuration
//
// Settings come from a YAML file (--config), NEBULA_ML_* environment
// variables and command line flags, in increasing precedence. The file
// supports ${VAR_NAME} substitution.
package nebulaml
