package media

import (
	"fmt"
	"regexp"
)

// Platform is a streaming site whose media is served from recognizable hosts.
// Hosts are regular expressions matched case-insensitively against the URL.
type Platform struct {
	Name  string   `yaml:"name" json:"name"`
	Hosts []string `yaml:"hosts" json:"hosts"`
}

// DefaultPlatforms is the built-in list of video CDNs.
// The config file can replace it with the "platforms" key.
var DefaultPlatforms = []Platform{
	{
		Name: "douyin",
		Hosts: []string{
			`v[0-9]+-\w+\.douyinvod\.com`,
			`v[0-9]+\.douyinstatic\.com`,
			`douyinvod\.com`,
			`douyinstatic\.com`,
			`aweme\.snssdk\.com`,
		},
	},
	{
		Name:  "youtube",
		Hosts: []string{`googlevideo\.com`},
	},
	{
		Name:  "twitter",
		Hosts: []string{`video\.twimg\.com`},
	},
	{
		Name:  "bilibili",
		Hosts: []string{`bilivideo\.(com|cn)`},
	},
}

// compilePlatforms turns host patterns into case-insensitive regexes.
func compilePlatforms(platforms []Platform) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, p := range platforms {
		if p.Name == "" || len(p.Hosts) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyPlatform, p.Name)
		}
		for _, h := range p.Hosts {
			re, err := regexp.Compile(`(?i)` + h)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %s: %v", ErrInvalidPlatformPattern, p.Name, h, err)
			}
			compiled = append(compiled, re)
		}
	}
	return compiled, nil
}

// ValidatePlatforms checks that every platform entry compiles.
func ValidatePlatforms(platforms []Platform) error {
	_, err := compilePlatforms(platforms)
	return err
}
