// Package render draws learned graphs.
//
// The [nodelink] subpackage turns any graph into Graphviz DOT source and
// renders it in-process to SVG or PNG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Prior: fr})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Formats lists the output formats the CLI and API accept.
//
// [nodelink]: github.com/matzehuels/causalhub/pkg/render/nodelink
package render

import (
	"fmt"
	"slices"
)

// Output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats is the set of supported output formats.
var Formats = []string{FormatJSON, FormatDOT, FormatSVG, FormatPNG}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("invalid format: %q (must be one of: json, dot, svg, png)", format)
	}
	return nil
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatJSON:
		return "application/json"
	}
	return "text/vnd.graphviz"
}
