package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dag/separation"
	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/httputil"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/observability"
	"github.com/matzehuels/causalhub/pkg/pipeline"
	"github.com/matzehuels/causalhub/pkg/render"
	"github.com/matzehuels/causalhub/pkg/score"
)

// FitRequest is the body of POST /v1/fit.
type FitRequest struct {
	Data    DataInput        `json:"data"`
	Options pipeline.Options `json:"options"`
}

// DataInput is an inline CSV dataset. Family defaults to the options'
// family, then to categorical.
type DataInput struct {
	Family string `json:"family,omitempty"`
	CSV    string `json:"csv"`
}

// FitResponse is the body of a successful fit.
type FitResponse struct {
	*pipeline.Result
	Graph    *cio.Graph `json:"graph,omitempty"`
	Skeleton *cio.Graph `json:"skeleton,omitempty"`
	CPDAG    *cio.Graph `json:"cpdag,omitempty"`
}

// SeparationRequest asks whether X and Y are d-separated by Z in Graph.
type SeparationRequest struct {
	Graph cio.Graph `json:"graph"`
	X     []string  `json:"x"`
	Y     []string  `json:"y"`
	Z     []string  `json:"z,omitempty"`
}

// SeparationResponse answers a SeparationRequest. MarkovBlanket is set
// when X is a single vertex.
type SeparationResponse struct {
	Separated     bool     `json:"separated"`
	MarkovBlanket []string `json:"markov_blanket,omitempty"`
}

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	Graph   cio.Graph `json:"graph"`
	Format  string    `json:"format,omitempty"`
	RankDir string    `json:"rankdir,omitempty"`
	Title   string    `json:"title,omitempty"`
}

func (s *Server) fit(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if err := httputil.DecodeJSON(w, r, &req, s.cfg.MaxBody); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := readData(req.Data, req.Options.Family)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if s.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FitTimeout)
		defer cancel()
	}
	req.Options.Logger = nil
	res, err := s.cfg.Runner.Fit(ctx, d, req.Options)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := FitResponse{Result: res}
	if res.Graph != nil {
		g := cio.ToGraph(res.Graph)
		out.Graph = &g
	}
	if res.Skeleton != nil {
		g := cio.ToGraph(res.Skeleton)
		out.Skeleton = &g
	}
	if res.CPDAG != nil {
		g := cio.ToGraph(res.CPDAG)
		out.CPDAG = &g
	}
	writeJSON(w, http.StatusOK, out)
}

func readData(in DataInput, family string) (dataset.Dataset, error) {
	if strings.TrimSpace(in.CSV) == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "data.csv is required")
	}
	if in.Family == "" {
		in.Family = family
	}
	if in.Family == "" {
		in.Family = string(score.Categorical)
	}
	fam, err := score.ParseFamily(in.Family)
	if err != nil {
		return nil, err
	}
	if fam == score.Gaussian {
		return cio.ReadContinuousCSV(strings.NewReader(in.CSV))
	}
	return cio.ReadCategoricalCSV(strings.NewReader(in.CSV))
}

func (s *Server) separation(w http.ResponseWriter, r *http.Request) {
	var req SeparationRequest
	if err := httputil.DecodeJSON(w, r, &req, s.cfg.MaxBody); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := req.Graph.DAG()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	x, err := dag.Indices(g, req.X...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, err := dag.Indices(g, req.Y...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	z, err := dag.Indices(g, req.Z...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sep, err := separation.DSeparated(g, x, y, z)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := SeparationResponse{Separated: sep}
	if len(x) == 1 {
		for _, v := range separation.MarkovBlanket(g, x[0]) {
			out.MarkovBlanket = append(out.MarkovBlanket, g.Label(v))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := httputil.DecodeJSON(w, r, &req, s.cfg.MaxBody); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := req.Graph.Decode()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = render.FormatSVG
	}
	if err := render.ValidateFormat(req.Format); err != nil {
		s.fail(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "render"))
		return
	}
	data, _, err := s.cfg.Runner.Render(r.Context(), g, pipeline.RenderOptions{
		Format:  req.Format,
		RankDir: req.RankDir,
		Title:   req.Title,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(req.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fail writes err and reports it to the HTTP hooks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.WriteError(w, err)
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}
