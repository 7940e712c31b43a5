// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Capture, Server, Demo}: full config tree parsed from YAML
//   - CaptureConfig: enabled, debug, max_stacks, depth_mode, prune_interval
//   - ServerConfig: http_port, grpc_port, stream_interval, auth
//   - AuthConfig: mode (apikey|none), key_env, header; Key() resolves the
//     expected key from the environment
//   - DemoConfig: enabled, interval, fanout
//
// Load(path) reads the YAML file, applies defaults (enabled, 1000 stacks,
// auto depth, ports 8080/50051, 5s stream), then validates ranges and enums.
//
// Watch(ctx, path, current, onChange) watches the file's directory with
// fsnotify, coalesces bursts of events and calls onChange with a Change only
// when the parsed Config differs from the current one. Only capture.enabled
// and capture.debug take effect live (Change.Live); Change.Restart lists the
// rest.
package config
