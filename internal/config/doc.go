// Package config loads, normalizes, and validates iconsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a working-directory .env file, and
// honours environment fallbacks such as OPENAI_API_KEY and OLLAMA_HOST. The
// Config type centralizes every knob the pipeline and CLI need.
//
// A Config is constructed once per process (Load, then Apply for flag
// overrides) and passed into component constructors. Nothing in the pipeline
// reads global configuration state.
package config
