package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"
	"github.com/mattn/go-isatty"

	"github.com/alecthomas/kdl"
	"github.com/alecthomas/kdl/ast"
)

var (
	version string = "dev"
	cli     struct {
		Version kong.VersionFlag
		Color   string `enum:"auto,always,never" default:"auto" help:"Colourise diagnostics (${enum})."`

		Check checkCmd `cmd:"" help:"Check KDL files for syntax errors."`
		AST   astCmd   `cmd:"" name:"ast" help:"Dump the syntax tree of a KDL file."`
		Fmt   fmtCmd   `cmd:"" help:"Print KDL files in canonical form."`
	}
)

type checkCmd struct {
	Files []string `arg:"" type:"existingfile" help:"KDL files to check."`
}

func (c *checkCmd) Run() error {
	failed := 0
	for _, file := range c.Files {
		if _, err := parseFile(file); err != nil {
			if err := report(err); !errors.Is(err, errInvalid) {
				return err
			}
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(c.Files))
	}
	return nil
}

type astCmd struct {
	File string `arg:"" type:"existingfile" help:"KDL file to dump."`
}

func (c *astCmd) Run() error {
	doc, err := parseFile(c.File)
	if err != nil {
		return report(err)
	}
	repr.Println(doc, repr.Indent("  "), repr.OmitEmpty(true))
	return nil
}

type fmtCmd struct {
	Files []string `arg:"" type:"existingfile" help:"KDL files to format."`
	Write bool     `short:"w" help:"Write the result back to the source file instead of stdout."`
}

func (c *fmtCmd) Run() error {
	for _, file := range c.Files {
		doc, err := parseFile(file)
		if err != nil {
			return report(err)
		}
		out := ast.Format(doc)
		if !c.Write {
			fmt.Print(out)
			continue
		}
		if err := os.WriteFile(file, []byte(out), 0600); err != nil {
			return err
		}
	}
	return nil
}

func parseFile(file string) (*ast.Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return kdl.ParseAST(file, string(data))
}

var errInvalid = errors.New("invalid KDL")

// report renders diagnostics to stderr and returns errInvalid. Errors other
// than diagnostics are returned as is.
func report(err error) error {
	var serr *kdl.SourceError
	if !errors.As(err, &serr) {
		return err
	}
	colour := cli.Color == "always" || (cli.Color == "auto" && isatty.IsTerminal(os.Stderr.Fd()))
	if rerr := serr.Render(os.Stderr, colour); rerr != nil {
		return rerr
	}
	fmt.Fprintln(os.Stderr)
	return fmt.Errorf("%s: %w", serr.Filename, errInvalid)
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Description(`A command-line tool for KDL documents.`),
		kong.Vars{"version": version},
	)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
