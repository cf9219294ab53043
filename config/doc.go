// Package config loads the boundcache daemon configuration.
//
// Configuration is assembled from built-in defaults, any number of JSON or
// YAML file layers, and BOUNDCACHE_* environment variables, in that order:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/boundcache.yaml")
//	loader.AddLayer("configs/production.json") // overrides the first layer
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Layers are merged key by key, so a later layer only names what it changes.
// Each entry under caches is merged over cache.DefaultConfig; durations may be
// written as strings ("5m") or integer nanoseconds.
//
// # Environment Overrides
//
//	BOUNDCACHE_LOG_LEVEL, BOUNDCACHE_LOG_FORMAT
//	BOUNDCACHE_METRICS_PORT, BOUNDCACHE_METRICS_PATH
//	BOUNDCACHE_NATS_URLS (comma separated), BOUNDCACHE_NATS_USERNAME,
//	BOUNDCACHE_NATS_PASSWORD, BOUNDCACHE_NATS_TOKEN
//	BOUNDCACHE_STORE_TYPE, BOUNDCACHE_STORE_CODEC, BOUNDCACHE_STORE_DIR,
//	BOUNDCACHE_STORE_BUCKET, BOUNDCACHE_STORE_PREFIX,
//	BOUNDCACHE_STORE_SERVERS (comma separated)
//
// # File Safety
//
// Config files must have a .json, .yaml or .yml extension, be regular files
// under 1MB, and relative paths may not leave the working directory. JSON
// nesting is limited to 100 levels.
package config
