// Package config builds the immutable per-run configuration.
//
// Settings come from four layers, lowest precedence first: repository
// defaults, an optional TOML file, an optional dotenv file, and the process
// environment. Resolve merges an environment snapshot with the file settings
// and is a pure function of its inputs; no other package reads the process
// environment directly.
package config
