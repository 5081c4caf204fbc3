package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/archiveworks/chatexport/exportctx"
	"github.com/archiveworks/chatexport/sink"
	"github.com/archiveworks/chatexport/writer"
)

// Format selects which of the five output formats a channel export
// produces.
type Format int

const (
	FormatPlainText Format = iota
	FormatHTMLDark
	FormatHTMLLight
	FormatCSV
	FormatJSON
)

// ParseFormat parses the config-surface format names from spec.md §6.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "plaintext", "":
		return FormatPlainText, nil
	case "htmldark":
		return FormatHTMLDark, nil
	case "htmllight":
		return FormatHTMLLight, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, &unknownFormatError{s}
	}
}

type unknownFormatError struct{ raw string }

func (e *unknownFormatError) Error() string { return "orchestrator: unknown format " + e.raw }
func (e *unknownFormatError) IsFatal() bool { return true }

func defaultExtension(f Format) string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatHTMLDark, FormatHTMLLight:
		return ".html"
	default:
		return ".txt"
	}
}

func newFormatWriter(f Format, ctx *exportctx.Context, meta writer.Metadata) sink.FormatWriter {
	switch f {
	case FormatCSV:
		return &writer.CSV{Ctx: ctx}
	case FormatJSON:
		return &writer.JSON{Ctx: ctx, Meta: meta}
	case FormatHTMLDark:
		return &writer.HTML{Ctx: ctx, Meta: meta, Theme: writer.ThemeDark}
	case FormatHTMLLight:
		return &writer.HTML{Ctx: ctx, Meta: meta, Theme: writer.ThemeLight}
	default:
		return &writer.PlainText{Ctx: ctx, Meta: meta}
	}
}

// defaultOutputPath derives an output path from a template and format
// when the caller didn't specify one explicitly.
func defaultOutputPath(template string, data sink.TemplateData, f Format) string {
	expanded := sink.ExpandTemplate(template, data)
	if filepath.Ext(expanded) == "" {
		expanded += defaultExtension(f)
	}
	return expanded
}
