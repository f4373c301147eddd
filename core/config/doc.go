// Package config loads application configuration from environment variables
// and an optional .env file, with defaults declared as struct tags on the
// partial configs. It also resolves the per-session Layout, the single place
// where event paths, feed URLs and relive URLs are derived.
package config
