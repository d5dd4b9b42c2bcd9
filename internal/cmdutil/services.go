package cmdutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/choreops/dashctl/internal/assemble"
	"github.com/choreops/dashctl/internal/assets"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/gate"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/pipeline"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/templates"
)

// Services are the release components wired from configuration.
type Services struct {
	// Remote is nil when no registry is configured.
	Remote   *assets.HTTPRemote
	Cache    *assets.DirBaseline
	Store    *assets.Store
	Resolver *release.Resolver
	Running  string
}

// NewServices builds the resolver and asset store for one command run.
// registryURL and mode are the values resolved with flag precedence.
func NewServices(cfg *config.Config, registryURL, mode string) (*Services, error) {
	if cfg == nil {
		return nil, &oerrors.ExitError{Code: oerrors.ExitGeneralError, Err: fmt.Errorf("configuration not loaded")}
	}

	parsed, err := release.ParseMode(mode)
	if err != nil {
		return nil, &oerrors.ExitError{Code: oerrors.ExitValidationError, Err: err}
	}

	s := &Services{Running: cfg.Integration.Version}
	storeOpts := []assets.StoreOption{
		assets.WithRunningVersion(s.Running),
		assets.WithFallbackTag(cfg.Release.Fallback),
	}
	if cfg.Cache.Dir != "" {
		s.Cache = assets.NewDirBaseline(cfg.Cache.Dir)
		storeOpts = append(storeOpts, assets.WithCache(s.Cache))
	}

	// Interfaces stay nil when offline so no typed nil reaches them.
	var remote assets.Remote
	var index release.Index
	if registryURL != "" {
		s.Remote = assets.NewHTTPRemote(registryURL, assets.WithTimeout(cfg.Registry.Timeout))
		remote, index = s.Remote, s.Remote
	} else {
		output.Debug("no registry configured, using local assets only")
	}

	s.Store = assets.NewStore(remote, storeOpts...)
	s.Resolver = release.NewResolver(parsed, index, s.Store, release.WithRunningVersion(s.Running))
	return s, nil
}

// LoadBundle resolves the release and loads its assets.
func (s *Services) LoadBundle(ctx context.Context) (release.Outcome, *assets.Bundle, error) {
	outcome := s.Resolver.Resolve(ctx)
	b, err := s.Store.LoadBundle(ctx, outcome)
	if err != nil {
		return outcome, nil, err
	}
	return outcome, b, nil
}

// GenerateOpts holds the inputs for Generate.
type GenerateOpts struct {
	Config   *config.Config
	Services *Services
	Bypass   BypassFlags
	Workers  int
}

// BuildRequest turns configuration and flags into a generation request.
func BuildRequest(opts GenerateOpts) (pipeline.Request, error) {
	cfg := opts.Config
	d := cfg.Dashboard

	req := pipeline.Request{
		Dashboard: assemble.Meta{Name: d.Name, Prefix: d.Prefix},
		Language:  d.Language,
		EntryID:   d.EntryID,
		Admin:     d.Admin,
		Present:   cfg.Dependencies.Present,
		Workers:   cfg.Render.Workers,
	}
	if opts.Workers > 0 {
		req.Workers = opts.Workers
	}
	for _, u := range d.Users {
		req.Users = append(req.Users, templates.User{Name: u.Name, UserID: u.UserID})
	}
	if len(d.Templates) > 0 {
		req.Templates = make(map[manifest.Audience]string, len(d.Templates))
		for a, id := range d.Templates {
			req.Templates[manifest.Audience(a)] = id
		}
	}
	if opts.Bypass.Bypass {
		actor := opts.Bypass.Actor
		if actor == "" {
			actor = os.Getenv("USER")
		}
		req.Bypass = &pipeline.Bypass{Actor: actor, Reason: opts.Bypass.Reason}
	}

	if err := req.Validate(); err != nil {
		return req, oerrors.NewValidationError(err.Error(), "dashboard", "",
			"set dashboard.name and dashboard.entry_id in the config file or pass --name and --entry-id")
	}
	return req, nil
}

// Generate runs the generation pipeline. On failure it returns an
// *ExitError with the appropriate exit code.
func Generate(ctx context.Context, opts GenerateOpts) (*pipeline.Result, error) {
	req, err := BuildRequest(opts)
	if err != nil {
		return nil, oerrors.WithExitCode(err, false)
	}

	genOpts := []pipeline.Option{
		pipeline.WithRunningVersion(opts.Services.Running),
		pipeline.WithClock(time.Now),
	}
	if opts.Config.Audit.Path != "" {
		genOpts = append(genOpts, pipeline.WithAuditSink(gate.NewFileAuditSink(opts.Config.Audit.Path)))
	}
	gen := pipeline.NewGenerator(opts.Services.Resolver, opts.Services.Store, genOpts...)

	output.Debug("generating dashboard",
		"name", req.Dashboard.Name,
		"users", len(req.Users),
		"admin", req.Admin,
		"workers", req.Workers,
	)

	result, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, oerrors.WithExitCode(err, false)
	}
	return result, nil
}
