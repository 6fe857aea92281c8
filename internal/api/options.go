package api

import (
	"github.com/rs/cors"

	"github.com/rohits-web03/filepod/internal/api/middleware"
	"github.com/rohits-web03/filepod/internal/config"
)

// Options are the router settings taken from configuration.
type Options struct {
	Cors           cors.Options
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies middleware.TrustedProxies
}

func OptionsFromConfig(cfg config.Config) (Options, error) {
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Cors:           cfg.CorsConfig,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: proxies,
	}, nil
}
