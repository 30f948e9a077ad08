// Package mixplan turns a preset, user micro-adjustments, and per-job
// alignment results into a deterministic ffmpeg filter graph. Building a plan
// never touches the filesystem or the renderer; identical inputs always yield
// byte-identical filter_complex strings.
package mixplan
