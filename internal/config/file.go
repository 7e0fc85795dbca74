package config

import (
	"maps"
	"strings"

	"github.com/mynest/mediasniff/internal/media"
)

// MyNest holds the connection to the MyNest download API.
type MyNest struct {
	// APIURL is the base URL, e.g. "http://localhost:8080".
	APIURL string `yaml:"api_url,omitempty"`

	// APIToken is sent as a bearer token when set.
	APIToken string `yaml:"api_token,omitempty"`

	// Category is attached to every submitted download.
	Category string `yaml:"category,omitempty"`
}

// SiteConfig holds request settings for one host.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are sent with every request to the host. A Referer is often
	// required by media CDNs.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the config file.
type File struct {
	// MyNest configures download submission.
	MyNest MyNest `yaml:"mynest,omitempty"`

	// Platforms lists streaming platform host patterns used to recognise
	// video URLs. Empty means media.DefaultPlatforms.
	Platforms []media.Platform `yaml:"platforms,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps host names to their settings. A key also matches its
	// subdomains.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// NewFile returns an empty config file.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// PlatformList returns the configured platforms, or the built-in ones.
func (cf *File) PlatformList() []media.Platform {
	if len(cf.Platforms) == 0 {
		return media.DefaultPlatforms
	}
	return cf.Platforms
}

// GetSiteConfig returns the settings for host merged over the defaults.
// The most specific matching Sites key wins.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{
		Cookie:  cf.Defaults.Cookie,
		Headers: maps.Clone(cf.Defaults.Headers),
	}

	site, ok := cf.lookupSite(strings.ToLower(host))
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	return result
}

// lookupSite finds host or its closest parent domain in Sites.
func (cf *File) lookupSite(host string) (SiteConfig, bool) {
	for h := host; h != ""; {
		if site, ok := cf.Sites[h]; ok {
			return site, true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return SiteConfig{}, false
}

// HeadersFor returns the headers and cookie for host.
func (cf *File) HeadersFor(host string) (map[string]string, string) {
	site := cf.GetSiteConfig(host)
	return site.Headers, site.Cookie
}
