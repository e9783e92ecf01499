package config

// DefaultRuntimeConfig returns the values used when neither a config file
// nor an environment variable supplies one. It is also the struct handed
// to koanf's structs.Provider, so its koanf tags double as the default
// layer in Load.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DataDir:  "./data",
		Port:     8080,
		Region:   "local",
		Account:  "000000000000",
		LogLevel: "info",
	}
}
