// internal/relay/config.go
package relay

type Config struct {
	// Route is the only request URI the relay answers; query strings do not match.
	Route string
}

func LoadConfig() *Config {
	return &Config{
		Route: Route,
	}
}
