package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

// printer writes command results to stdout and notices to stderr.
type printer struct {
	out io.Writer
	err io.Writer
}

func newPrinter() *printer {
	return &printer{out: os.Stdout, err: os.Stderr}
}

func (p *printer) Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(p.err, format+"\n", args...)
}

func (p *printer) Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(p.err, format+"\n", args...)
}

func (p *printer) Warn(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(p.err, format+"\n", args...)
}

// Heading prints a bold section title to stdout in table mode.
func (p *printer) Heading(format string, args ...interface{}) {
	if outputFormat != formatTable {
		return
	}
	color.New(color.Bold).Fprintf(p.out, format+"\n", args...)
}

// Result renders v as YAML, or as the given table in table mode.
func (p *printer) Result(v interface{}, headers []string, rows [][]string) error {
	if outputFormat == formatYAML {
		return p.YAML(v)
	}
	p.Table(headers, rows)
	return nil
}

func (p *printer) YAML(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output to YAML: %w", err)
	}
	_, err = p.out.Write(out)
	return err
}

func (p *printer) Table(headers []string, rows [][]string) {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	_ = table.Bulk(rows)
	_ = table.Render()
}
