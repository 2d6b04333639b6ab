// Package config provides loading and environment overlay for the
// repository's pipeline configuration. It exposes a Default() baseline and
// helpers to build a Config for the repository builder.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/chronicle.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	b := repo.NewBuilder().WithConfig(cfg)
package config
