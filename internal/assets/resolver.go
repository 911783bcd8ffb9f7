// Package assets maps clip source references (asset:// identifiers, local
// paths, http(s) URLs) to locally readable files, downloading and caching
// remote references. Resolution failure is fatal for the whole compilation;
// there is no per-clip degradation.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediaforge/renderd/internal/config"
)

// ErrUnresolvable indicates a source reference that cannot be mapped to a
// readable local file.
var ErrUnresolvable = errors.New("asset source cannot be resolved")

const assetScheme = "asset://"

// Resolver resolves clip sources against the local assets root and
// downloads remote references into a per-job work directory.
type Resolver struct {
	root      string
	urlPrefix string
	client    *http.Client
}

// NewResolver builds a resolver from the render configuration.
func NewResolver(cfg config.RenderConfig) *Resolver {
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Resolver{
		root:      cfg.AssetsRoot,
		urlPrefix: strings.TrimRight(cfg.AssetURLPrefix, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

// Resolve maps src to a locally readable path. Remote references are
// downloaded into workdir; a cached copy is reused when present and
// non-empty.
func (r *Resolver) Resolve(ctx context.Context, src, workdir string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("%w: empty source", ErrUnresolvable)
	}

	if strings.HasPrefix(src, assetScheme) {
		return r.resolveAssetName(ctx, strings.TrimPrefix(src, assetScheme), workdir)
	}

	if isRemote(src) {
		return r.download(ctx, src, workdir)
	}

	if _, err := os.Stat(src); err == nil {
		return src, nil
	}

	// Plain names are remapped under the assets root when one is set.
	if r.root != "" && !filepath.IsAbs(src) {
		candidate := filepath.Join(r.root, src)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnresolvable, src)
}

// resolveAssetName maps an asset:// identifier under the assets root,
// falling back to the configured CDN prefix when the file is absent.
func (r *Resolver) resolveAssetName(ctx context.Context, name, workdir string) (string, error) {
	// Guard against path traversal in payload-supplied names.
	name = strings.ReplaceAll(name, "..", "_")

	if r.root != "" {
		local := filepath.Join(r.root, name)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}
	if r.urlPrefix != "" {
		return r.download(ctx, r.urlPrefix+"/"+name, workdir)
	}
	return "", fmt.Errorf("%w: asset://%s", ErrUnresolvable, name)
}

func (r *Resolver) download(ctx context.Context, rawurl, workdir string) (string, error) {
	local := filepath.Join(workdir, safeFilename(rawurl))
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		return local, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, rawurl, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, rawurl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: status %d", ErrUnresolvable, rawurl, resp.StatusCode)
	}

	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workdir: %w", err)
	}

	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(local)
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, rawurl, err)
	}
	return local, nil
}

// FetchPayload retrieves a render payload from a URL.
func (r *Resolver) FetchPayload(ctx context.Context, rawurl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid payload URL: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch payload: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// safeFilename derives a cache filename from a URL, dropping the query.
func safeFilename(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "asset"
	}
	base := filepath.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "asset"
	}
	return base
}
