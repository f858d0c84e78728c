// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort            — port for the REST API, WebSocket hub, and /metrics (default 8090)
//   - Auth.Mode           — "apikey" or "none"
//   - Auth.KeyEnv         — environment variable holding the expected API key
//   - Auth.Header         — HTTP header carrying the key (default "x-api-key")
//   - Store.SweepInterval — cadence of the expired-context sweep; 0 disables it (default 60s)
//   - Stream.Interval     — WebSocket stats broadcast cadence (default 5s)
//   - Metrics.Namespace   — Prometheus metric name prefix (default "contexthub")
//   - Watchdog            — rule evaluation interval, rules, and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates. Secrets
// never live in the file: key_env/url_env name environment variables that
// are resolved at call time.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after each reload.
package config
