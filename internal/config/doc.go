// Package config defines the application configuration structure and loading.
//
// Configuration comes from three sources, in increasing precedence: built-in
// defaults, an optional qdispatch.yaml file, and QDISPATCH_* environment
// variables. The loaded Config is validated once at the boundary; components
// receive the settings they need explicitly rather than reading process-global
// state.
package config
