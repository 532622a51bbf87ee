// Package config loads service configuration from a YAML file, an optional
// .env file and the environment.
//
// Files are found by service name (./cmd/<name>/config.yml, ./config.yml,
// ...) unless given explicitly. Environment variables carrying the service
// prefix override file values, with underscores standing in for nesting:
//
//	DIARLIVE_SERVER_PORT=9090          -> server.port
//	DIARLIVE_ENGINE_SIDECAR_BASE_URL=… -> engine.sidecar.base_url
//
// Binaries embed ServiceConfig and call LoadConfig, then ApplyDefaults and
// Validate on the result.
package config
