// Package pipeline generates a dashboard: it resolves a release, loads its
// assets, gates templates on their dependencies, renders every view on a
// bounded worker pool and assembles the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/choreops/dashctl/internal/assemble"
	"github.com/choreops/dashctl/internal/assets"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/gate"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/templates"
	"github.com/choreops/dashctl/internal/version"
)

// Resolver decides which release to use.
type Resolver interface {
	Resolve(ctx context.Context) release.Outcome
}

// BundleLoader serves the assets for a resolution outcome.
type BundleLoader interface {
	LoadBundle(ctx context.Context, outcome release.Outcome) (*assets.Bundle, error)
}

// Generator runs dashboard generations.
type Generator struct {
	resolver Resolver
	store    BundleLoader
	audit    gate.AuditSink
	running  string
	policy   manifest.Policy
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithAuditSink sets where dependency bypasses are recorded.
func WithAuditSink(sink gate.AuditSink) Option {
	return func(g *Generator) { g.audit = sink }
}

// WithRunningVersion overrides the integration version templates are
// evaluated against.
func WithRunningVersion(v string) Option {
	return func(g *Generator) { g.running = v }
}

// WithPolicy sets the lifecycle policy.
func WithPolicy(p manifest.Policy) Option {
	return func(g *Generator) { g.policy = p }
}

// WithClock replaces time.Now for bypass timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator.
func NewGenerator(resolver Resolver, store BundleLoader, opts ...Option) *Generator {
	g := &Generator{
		resolver: resolver,
		store:    store,
		running:  version.IntegrationVersion,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// view is one render job.
type view struct {
	id       string
	audience manifest.Audience
	order    int
	user     *templates.User
	sel      *Selection
}

// Generate produces a dashboard.
//
// Phase sequence:
//  1. RESOLVE:  Resolver.Resolve() → release.Outcome (Failed is not fatal)
//  2. LOAD:     BundleLoader.LoadBundle() → *assets.Bundle
//  3. SELECT:   per audience, pick a record and evaluate it
//  4. GATE:     dependency review; blocked templates need a recorded bypass
//  5. RENDER:   one job per view on an errgroup bounded by Request.Workers
//  6. ASSEMBLE: assemble.Assemble() → *assemble.Dashboard
//
// View failures land in Result.Failures and Dashboard.Errors. Cancellation
// at any point before assembly returns ctx.Err().
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, oerrors.NewValidationError(err.Error(), "generate request", "", "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 1: RESOLVE
	outcome := g.resolver.Resolve(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !outcome.Resolved() {
		output.Warn("release resolution failed, using local assets", "mode", outcome.Mode, "err", outcome.Err)
	}

	// Phase 2: LOAD
	bundle, err := g.store.LoadBundle(ctx, outcome)
	if err != nil {
		return nil, err
	}
	output.ReleaseLogger(bundle.Ref.Tag).Debug("assets loaded", "source", bundle.Provenance.Source)

	result := &Result{
		Outcome:    outcome,
		Provenance: bundle.Provenance,
		Bypasses:   []gate.BypassRecord{},
		Failures:   []error{},
	}

	// Phases 3 and 4: SELECT and GATE
	audiences := []manifest.Audience{manifest.AudienceUser}
	if req.Admin {
		audiences = append(audiences, manifest.AudienceAdminShared, manifest.AudienceAdminUser)
	}
	for _, a := range audiences {
		sel := g.selectTemplate(bundle.Manifest, a, req)
		if sel.Err == nil && sel.Review.Blocked() {
			if err := g.bypass(ctx, &sel, req, result); err != nil {
				return nil, err
			}
		}
		result.Selections = append(result.Selections, sel)
	}

	views := planViews(req, result.Selections)

	// Phase 5: RENDER
	results, err := g.render(ctx, req, bundle, views)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 6: ASSEMBLE
	for _, r := range results {
		if r.Err != nil {
			result.Failures = append(result.Failures, r.Err)
		}
	}
	result.Dashboard = assemble.Assemble(req.Dashboard, results)

	output.Debug("dashboard assembled",
		"views", len(result.Dashboard.Views),
		"errors", len(result.Dashboard.Errors),
	)
	return result, nil
}

// selectTemplate picks the record for an audience and runs the gate on it.
func (g *Generator) selectTemplate(m *manifest.Manifest, a manifest.Audience, req Request) Selection {
	sel := Selection{Audience: a}

	if id := req.Templates[a]; id != "" {
		rec, ok := m.Lookup(id)
		if !ok {
			sel.Err = &SelectionError{Audience: a, TemplateID: id,
				Err: fmt.Errorf("%w: not in the manifest", oerrors.ErrNotFound)}
			return sel
		}
		sel.Record = rec
		sel.Verdict = manifest.Compatible(rec, g.running, m.SchemaVersion, g.policy)
		if !sel.Verdict.Selectable {
			sel.Err = &SelectionError{Audience: a, TemplateID: id, Reason: sel.Verdict.Reason}
			return sel
		}
	} else {
		candidates := manifest.Filter(m, g.running, g.policy)
		found := false
		for _, rec := range candidates {
			if rec.Audience == a {
				sel.Record = rec
				sel.Verdict = manifest.Compatible(rec, g.running, m.SchemaVersion, g.policy)
				found = true
				break
			}
		}
		if !found {
			sel.Err = &SelectionError{Audience: a}
			return sel
		}
	}

	if sel.Verdict.Deprecated {
		output.Warn("template is deprecated", "template", sel.Record.TemplateID)
	}
	sel.Review = gate.ReviewRecord(sel.Record, req.Present)
	if len(sel.Review.MissingRecommended) > 0 {
		output.Info("recommended dependencies missing",
			"template", sel.Record.TemplateID, "missing", sel.Review.MissingRecommended)
	}
	return sel
}

// bypass records a bypass for a blocked selection, or fails the selection
// when none was requested.
func (g *Generator) bypass(ctx context.Context, sel *Selection, req Request, result *Result) error {
	if req.Bypass == nil {
		sel.Err = sel.Review.Err()
		return nil
	}

	rec := gate.Bypass(sel.Review, req.Bypass.Actor, req.Bypass.Reason, g.now())
	if g.audit != nil {
		if err := g.audit.Record(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("recording bypass for %s: %w", rec.TemplateID, err)
		}
	} else {
		output.Warn("no audit log configured, bypass not persisted", "template", rec.TemplateID)
	}
	output.Warn("dependency gate bypassed",
		"template", rec.TemplateID, "missing", rec.MissingRequired, "actor", rec.Actor)
	result.Bypasses = append(result.Bypasses, rec)
	return nil
}

// planViews expands selections into render jobs. A failed selection still
// yields its views so every one of them is reported.
func planViews(req Request, sels []Selection) []view {
	var views []view
	for i := range sels {
		sel := &sels[i]
		switch sel.Audience {
		case manifest.AudienceAdminShared:
			views = append(views, view{id: "admin", audience: sel.Audience, sel: sel})
		default:
			prefix := ""
			if sel.Audience == manifest.AudienceAdminUser {
				prefix = "admin-"
			}
			for j := range req.Users {
				u := req.Users[j]
				views = append(views, view{
					id:       prefix + templates.Slugify(u.Name),
					audience: sel.Audience,
					order:    j,
					user:     &u,
					sel:      sel,
				})
			}
		}
	}
	return views
}

// render runs one job per view with at most Request.Workers in flight.
func (g *Generator) render(ctx context.Context, req Request, bundle *assets.Bundle, views []view) ([]assemble.ViewResult, error) {
	results := make([]assemble.ViewResult, len(views))
	if len(views) == 0 {
		return results, nil
	}

	renderer := templates.NewRenderer()
	lang := req.Language
	if lang == "" {
		lang = assets.DefaultLanguage
	}
	urlPath := assemble.URLPath(req.Dashboard.Prefix, req.Dashboard.Name)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(req.workers(len(views)))

	for i, v := range views {
		i, v := i, v
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = g.renderView(renderer, bundle, v, templates.RenderContext{
				User:    v.user,
				EntryID: req.EntryID,
				UI:      bundle.Translations(lang),
				Dashboard: templates.DashboardMeta{
					Name:     req.Dashboard.Name,
					URLPath:  urlPath,
					Language: lang,
				},
				Values: req.Values,
			})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Generator) renderView(r *templates.Renderer, bundle *assets.Bundle, v view, rc templates.RenderContext) assemble.ViewResult {
	res := assemble.ViewResult{
		ViewID:     v.id,
		TemplateID: v.sel.Record.TemplateID,
		Audience:   v.audience,
		Order:      v.order,
	}
	fail := func(err error) assemble.ViewResult {
		var ve ViewError
		if !errors.As(err, &ve) || ve.View() == "" {
			err = &RenderFailure{ViewID: v.id, TemplateID: res.TemplateID, Err: err}
		}
		res.Err = err
		output.Debug("view failed", "view", v.id, "template", res.TemplateID, "err", err)
		return res
	}

	if v.sel.Err != nil {
		return fail(v.sel.Err)
	}
	src, err := bundle.Template(res.TemplateID)
	if err != nil {
		return fail(err)
	}
	frag, err := r.Render(res.TemplateID, v.id, src, rc)
	if err != nil {
		return fail(err)
	}
	res.Fragment = frag
	return res
}
