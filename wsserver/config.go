package wsserver

// Config controls the room broadcast server.
type Config struct {
	// Addr is the listen address for the socket endpoint.
	Addr string
	// ReadLimitBytes caps the size of one inbound frame.
	ReadLimitBytes int64
	// SendBuffer is the per-connection outbound queue length. A connection
	// that falls this far behind starts losing broadcasts.
	SendBuffer int
}

// NormalizeConfig applies defaults.
func NormalizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":27491"
	}
	if cfg.ReadLimitBytes <= 0 {
		cfg.ReadLimitBytes = 1 << 20
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return cfg
}
