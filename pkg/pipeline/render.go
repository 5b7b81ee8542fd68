package pipeline

import (
	"context"

	"github.com/matzehuels/causalhub/pkg/cache"
	"github.com/matzehuels/causalhub/pkg/dag"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/prior"
	"github.com/matzehuels/causalhub/pkg/render"
	"github.com/matzehuels/causalhub/pkg/render/nodelink"
)

// RenderOptions configure Render.
type RenderOptions struct {
	Format  string `json:"format"`
	RankDir string `json:"rankdir,omitempty"`
	Title   string `json:"title,omitempty"`
	// Prior marks required edges in diagrams. It is not part of the
	// cache key; callers rendering the same graph with different priors
	// should set Title or disable caching.
	Prior *prior.ForbiddenRequired `json:"-"`
}

// Render draws g in the requested format. Image formats are cached by the
// graph's content hash; the second return value reports a cache hit.
func (r *Runner) Render(ctx context.Context, g dag.Graph, opts RenderOptions) ([]byte, bool, error) {
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	if err := render.ValidateFormat(opts.Format); err != nil {
		return nil, false, err
	}
	graphJSON, err := cio.MarshalGraph(g)
	if err != nil {
		return nil, false, err
	}
	if opts.Format == render.FormatJSON {
		return graphJSON, false, nil
	}
	dot := nodelink.ToDOT(g, nodelink.Options{Title: opts.Title, RankDir: opts.RankDir, Prior: opts.Prior})
	if opts.Format == render.FormatDOT {
		return []byte(dot), false, nil
	}

	key := r.Keyer.RenderKey(cache.Hash(graphJSON), cache.RenderKeyOpts{
		Format: opts.Format,
		Layout: opts.RankDir + "|" + opts.Title,
	})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}
	var out []byte
	switch opts.Format {
	case render.FormatPNG:
		out, err = nodelink.RenderPNG(ctx, dot)
	default:
		out, err = nodelink.RenderSVG(ctx, dot)
	}
	if err != nil {
		return nil, false, err
	}
	_ = r.Cache.Set(ctx, key, out, cache.RenderTTL)
	return out, false, nil
}
