package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/version"
)

var (
	prefixRegex   = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	languageRegex = regexp.MustCompile(`^[a-z]{2,3}([_-][A-Za-z]{2,4})?$`)
)

var semverRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !version.Valid(s) {
		return errors.New("must be a semantic version")
	}
	return nil
})

var modeRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := release.ParseMode(s)
	return err
})

var urlRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
})

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.Errors{
		"registry":     c.Registry.Validate(),
		"release":      c.Release.Validate(),
		"integration":  c.Integration.Validate(),
		"dashboard":    c.Dashboard.Validate(),
		"render":       c.Render.Validate(),
		"dependencies": c.Dependencies.Validate(),
	}.Filter()
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, urlRule),
		validation.Field(&c.Timeout, validation.Min(0)),
	)
}

// Validate validates the release configuration.
func (c *ReleaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, modeRule),
		validation.Field(&c.Fallback, semverRule),
	)
}

// Validate validates the integration configuration.
func (c *IntegrationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Version, semverRule),
	)
}

// Validate validates the dashboard configuration.
func (c *DashboardConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Prefix, validation.Match(prefixRegex)),
		validation.Field(&c.Language, validation.Match(languageRegex)),
		validation.Field(&c.Users, validation.By(uniqueUsers)),
		validation.Field(&c.Templates, validation.By(knownAudiences)),
	)
}

// Validate requires a name and an id.
func (u UserConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required),
		validation.Field(&u.UserID, validation.Required),
	)
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(64)),
	)
}

// Validate validates the dependency list.
func (c *DependenciesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Present, validation.Each(validation.Required)),
	)
}

func uniqueUsers(value interface{}) error {
	users, _ := value.([]UserConfig)
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if u.UserID == "" {
			continue
		}
		if seen[u.UserID] {
			return fmt.Errorf("duplicate user_id %q", u.UserID)
		}
		seen[u.UserID] = true
	}
	return nil
}

func knownAudiences(value interface{}) error {
	templates, _ := value.(map[string]string)
	for audience := range templates {
		switch manifest.Audience(audience) {
		case manifest.AudienceUser, manifest.AudienceAdminShared, manifest.AudienceAdminUser:
		default:
			return fmt.Errorf("unknown audience %q (valid: user, admin-shared, admin-user)", audience)
		}
	}
	return nil
}

// ValidateFile validates a configuration file at the given path.
func ValidateFile(path string) (*Config, error) {
	cfg, err := NewLoader().Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	return cfg, cfg.Validate()
}
