// Package config loads runtime configuration for the retrace CLI.
//
// Configuration merges three layers, lowest precedence first: built-in
// defaults, an optional YAML file (strict parsing, unknown keys are
// errors), and RETRACE_* environment variables. A .env file in the
// working directory is folded into the environment before the override
// pass, so secrets like the planner API key stay out of config files.
package config
