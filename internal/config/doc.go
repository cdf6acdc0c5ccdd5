// Package config loads and merges guardrail configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GUARDRAIL_THRESHOLD, GUARDRAIL_GATES, GUARDRAIL_FORMAT, etc.),
//     after a .env file in the working directory has been loaded
//  3. Project file (.guardrail.yml in the working directory)
//  4. User config file ($XDG_CONFIG_HOME/guardrail/config.json)
//  5. Built-in defaults
//
// Use [Load] to obtain a merged and validated [Config], [Save] to write the
// user config file, and [SetField] to update a single key.
package config
