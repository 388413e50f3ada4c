package config

import "time"

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.StreamPollInterval = 10 * time.Millisecond
	cfg.WorkerPollInterval = 10 * time.Millisecond
}
