package config

import (
	"fmt"
	"net/url"

	"github.com/usemiddleman/middleman/types"
)

// ProxyConfig configures the development CORS proxy.
type ProxyConfig struct {
	Port           string
	Target         string
	AllowedOrigins []string
	AllowAnyOrigin bool
}

func (pc ProxyConfig) Validate() error {
	if err := validatePort("PROXY_PORT", pc.Port); err != nil {
		return err
	}
	if u, err := url.Parse(pc.Target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.NewInvalidValueError("PROXY_TARGET", pc.Target, "must be an absolute http or https URL")
	}
	for _, origin := range pc.AllowedOrigins {
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			return types.NewInvalidValueError("CORS_ALLOWED_ORIGINS", origin, fmt.Sprintf("origin must look like scheme://host, got %q", origin))
		}
	}
	return nil
}

// OriginAllowed reports whether a browser origin may read proxy responses.
func (pc ProxyConfig) OriginAllowed(origin string) bool {
	if pc.AllowAnyOrigin {
		return true
	}
	for _, o := range pc.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
