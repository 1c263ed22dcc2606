package config

// SiteConfig holds per-host request settings.
type SiteConfig struct {
	// Cookie is the session cookie sent to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Pages overrides the number of pages fetched per query or link.
	Pages int `yaml:"pages,omitempty"`

	// PageSize overrides the page_size parameter.
	PageSize int `yaml:"page_size,omitempty"`
}

// File represents the structure of the .wsspider configuration file.
type File struct {
	// Sites maps hosts (e.g. "fofa.info") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged over defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Pages != 0 {
		result.Pages = siteConfig.Pages
	}
	if siteConfig.PageSize != 0 {
		result.PageSize = siteConfig.PageSize
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
