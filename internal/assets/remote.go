package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/release"
)

const (
	// DefaultTimeout bounds every remote fetch.
	DefaultTimeout = 10 * time.Second

	indexFile = "index.json"

	cacheExpiration = 10 * time.Minute
	cacheCleanup    = 30 * time.Minute

	maxFileSize = 8 << 20
)

// Remote fetches complete bundles for a release tag.
type Remote interface {
	FetchBundle(ctx context.Context, tag string) (*Bundle, error)
}

// indexDoc is the content of {base}/index.json.
type indexDoc struct {
	Releases []struct {
		Tag string `json:"tag"`
	} `json:"releases"`
}

// HTTPRemote reads releases from a static HTTP layout:
//
//	{base}/index.json
//	{base}/{tag}/dashboard_registry.json
//	{base}/{tag}/<asset paths>
//
// Index and manifest documents are memoized for the life of the process.
type HTTPRemote struct {
	base    string
	client  *http.Client
	timeout time.Duration
	cache   *gocache.Cache
}

// HTTPOption configures an HTTPRemote.
type HTTPOption func(*HTTPRemote)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPRemote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPRemote) { r.client = c }
}

// NewHTTPRemote returns a remote rooted at baseURL.
func NewHTTPRemote(baseURL string, opts ...HTTPOption) *HTTPRemote {
	r := &HTTPRemote{
		base:    strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		timeout: DefaultTimeout,
		cache:   gocache.New(cacheExpiration, cacheCleanup),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tags lists the published release tags.
func (r *HTTPRemote) Tags(ctx context.Context) ([]string, error) {
	if v, ok := r.cache.Get(indexFile); ok {
		if tags, ok := v.([]string); ok {
			return tags, nil
		}
	}

	data, err := r.get(ctx, indexFile)
	if err != nil {
		return nil, err
	}
	var doc indexDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", oerrors.ErrValidation, indexFile, err)
	}

	tags := make([]string, 0, len(doc.Releases))
	for _, rel := range doc.Releases {
		if rel.Tag != "" {
			tags = append(tags, rel.Tag)
		}
	}
	r.cache.SetDefault(indexFile, tags)
	return tags, nil
}

// Manifest fetches and decodes one release's registry manifest.
func (r *HTTPRemote) Manifest(ctx context.Context, tag string) (*manifest.Manifest, error) {
	data, err := r.manifestBytes(ctx, tag)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: release %s: %v", oerrors.ErrValidation, tag, err)
	}
	return m, nil
}

// FetchBundle downloads the manifest and every asset it references. Missing
// template sources leave their records invalid; missing docs and
// translations are skipped.
func (r *HTTPRemote) FetchBundle(ctx context.Context, tag string) (*Bundle, error) {
	ref, err := release.NewRef(tag, release.SourceResolvedLatest)
	if err != nil {
		return nil, err
	}
	log := output.ReleaseLogger(tag)

	raw, err := r.manifestBytes(ctx, tag)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: release %s: %v", oerrors.ErrValidation, tag, err)
	}

	files := map[string][]byte{ManifestFile: raw}
	if m.Unsupported {
		return newBundle(ref, files)
	}

	var wanted []string
	for _, rec := range m.Records {
		if rec.Invalid != nil {
			continue
		}
		wanted = append(wanted, rec.SourcePath)
		if rec.DocAssetPath != "" {
			wanted = append(wanted, rec.DocAssetPath)
		}
	}
	langs := m.Languages
	if len(langs) == 0 {
		langs = []string{DefaultLanguage}
	}
	for _, lang := range langs {
		wanted = append(wanted, TranslationPath(lang))
	}

	for _, name := range wanted {
		if _, ok := files[name]; ok {
			continue
		}
		data, err := r.get(ctx, tag+"/"+name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, oerrors.ErrNotFound) {
				return nil, err
			}
			log.Debug("asset missing from release", "path", name)
			continue
		}
		files[name] = data
	}

	files[ReleaseFile], _ = json.Marshal(releaseInfo{Tag: tag})
	return newBundle(ref, files)
}

func (r *HTTPRemote) manifestBytes(ctx context.Context, tag string) ([]byte, error) {
	key := tag + "/" + ManifestFile
	if v, ok := r.cache.Get(key); ok {
		if data, ok := v.([]byte); ok {
			return data, nil
		}
	}
	data, err := r.get(ctx, key)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, data)
	return data, nil
}

// get fetches one path under the base URL with the per-fetch timeout.
func (r *HTTPRemote) get(ctx context.Context, rel string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := r.base + "/" + rel
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oerrors.ErrValidation, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, oerrors.NewConnectivityError(
			fmt.Sprintf("fetching %s: %v", rel, err),
			map[string]string{"url": url},
			"check registry.url or retry with --verbose")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", oerrors.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, oerrors.NewConnectivityError(
			fmt.Sprintf("fetching %s: status %d", rel, resp.StatusCode),
			map[string]string{"url": url},
			"")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, oerrors.NewConnectivityError(
			fmt.Sprintf("reading %s: %v", rel, err),
			map[string]string{"url": url},
			"")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", oerrors.ErrValidation, url, maxFileSize)
	}
	return data, nil
}
