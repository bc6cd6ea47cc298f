package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr         string
	HistoryLimit int
}

// NormalizeConfig fills zero values with defaults.
func NormalizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":27490"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}
	return cfg
}
