package io

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/prior"
)

// PriorFile is the document form of prior knowledge.
type PriorFile struct {
	Forbidden [][]string `toml:"forbidden" yaml:"forbidden" json:"forbidden,omitempty"`
	Required  [][]string `toml:"required" yaml:"required" json:"required,omitempty"`
}

// Pairs converts the document's edges to label pairs. Every entry must have
// exactly two labels.
func (p PriorFile) Pairs() (forbidden, required [][2]string, err error) {
	if forbidden, err = pairs("forbidden", p.Forbidden); err != nil {
		return nil, nil, err
	}
	if required, err = pairs("required", p.Required); err != nil {
		return nil, nil, err
	}
	return forbidden, required, nil
}

// Build resolves the document against the dataset's labels.
func (p PriorFile) Build(labels []string) (*prior.ForbiddenRequired, error) {
	forbidden, required, err := p.Pairs()
	if err != nil {
		return nil, err
	}
	return prior.New(labels, forbidden, required)
}

func pairs(field string, in [][]string) ([][2]string, error) {
	out := make([][2]string, len(in))
	for i, e := range in {
		if len(e) != 2 {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "%s[%d]: want [from, to], got %d labels", field, i, len(e))
		}
		out[i] = [2]string{e[0], e[1]}
	}
	return out, nil
}

// Prior formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// DecodePrior parses a prior knowledge document in the given format.
func DecodePrior(data []byte, format string) (PriorFile, error) {
	var p PriorFile
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&p)
		if err != nil {
			return p, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode toml prior")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return p, errs.New(errs.ErrCodeInvalidFormat, "unknown prior key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return p, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode yaml prior")
		}
	default:
		return p, errs.New(errs.ErrCodeInvalidFormat, "unknown prior format %q (want toml or yaml)", format)
	}
	return p, nil
}

// LoadPriorFile decodes the prior file at path, choosing the format by
// extension (.toml, .yaml, .yml).
func LoadPriorFile(path string) (PriorFile, error) {
	format, err := priorFormat(path)
	if err != nil {
		return PriorFile{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return PriorFile{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "%s", path)
	}
	if err != nil {
		return PriorFile{}, errs.Wrap(errs.ErrCodeInvalidPath, err, "read %s", path)
	}
	return DecodePrior(data, format)
}

// ReadPriorFile loads the prior file at path and resolves it against
// labels.
func ReadPriorFile(path string, labels []string) (*prior.ForbiddenRequired, error) {
	p, err := LoadPriorFile(path)
	if err != nil {
		return nil, err
	}
	return p.Build(labels)
}

func priorFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "%s: prior files must end in .toml, .yaml or .yml", path)
}
