// Package config loads and validates the dbfarm service configuration.
//
// The configuration is a single YAML document describing the instance
// store, the administrative endpoint for every enabled engine family,
// plan limit overrides, telemetry, and notifier settings. Loading applies
// defaults first, then struct-tag validation, then cross-field checks
// (every configured engine must be a known kind with a usable admin
// endpoint).
package config
