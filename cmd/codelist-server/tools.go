package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/codelist/codelist/internal/config"
	"github.com/codelist/codelist/internal/domain/codelist"
	"github.com/codelist/codelist/internal/loader"
)

// fileFlags are shared by the commands that read a codelist file.
type fileFlags struct {
	codelistType string
	name         string
	source       string
	output       string
}

func (f *fileFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVarP(&f.codelistType, "type", "t", "", "Coding system: ICD10, SNOMED, OPCS or CTV3")
	cmd.Flags().StringVar(&f.name, "name", "", "Codelist name (defaults to the file name)")
	cmd.Flags().StringVar(&f.source, "source", string(codelist.SourceFile), "Provenance source")
	_ = cmd.MarkFlagRequired("type")
	if withOutput {
		cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the result here; format follows the extension (default: JSON to stdout)")
	}
}

// open loads the file named by args[0] with column names from config.
func (f *fileFlags) open(args []string) (*codelist.CodeList, *loader.Loader, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	l := newLoader(cfg, zerolog.Nop())
	cl, err := l.Load(args[0], f.name, f.codelistType, f.source)
	if err != nil {
		return nil, nil, err
	}
	return cl, l, nil
}

func (f *fileFlags) write(cmd *cobra.Command, l *loader.Loader, cl *codelist.CodeList) error {
	if f.output == "" {
		return l.Encode(loader.FormatJSON, cmd.OutOrStdout(), cl)
	}
	format, err := loader.FormatFromPath(f.output)
	if err != nil {
		return err
	}
	out, err := os.Create(f.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.output, err)
	}
	if err := l.Encode(format, out, cl); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", cl.Len(), f.output)
	return nil
}

func validateCmd() *cobra.Command {
	var flags fileFlags
	var pattern string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check every code in a codelist file against its coding system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := flags.open(args)
			if err != nil {
				return err
			}
			if pattern != "" {
				err = cl.ValidateCodesWithPattern(pattern)
			} else {
				err = cl.ValidateCodes()
			}
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), "%s: %d %s codes valid\n", cl.Name(), cl.Len(), cl.Type())
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&pattern, "pattern", "", "Validate against this regular expression instead")
	return cmd
}

func truncateCmd() *cobra.Command {
	var flags fileFlags
	var termManagement string
	cmd := &cobra.Command{
		Use:   "truncate <file>",
		Short: "Collapse ICD10 codes to their 3-character category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, l, err := flags.open(args)
			if err != nil {
				return err
			}
			if err := cl.TruncateTo3Digits(codelist.TermManagement(termManagement)); err != nil {
				return err
			}
			return flags.write(cmd, l, cl)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&termManagement, "term-management", string(codelist.TermFirst), "How to merge terms of collapsed codes")
	return cmd
}

func addXCmd() *cobra.Command {
	var flags fileFlags
	cmd := &cobra.Command{
		Use:   "add-x <file>",
		Short: "Add the X-suffixed variant of every ICD10 code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, l, err := flags.open(args)
			if err != nil {
				return err
			}
			if err := cl.AddXCodes(); err != nil {
				return err
			}
			return flags.write(cmd, l, cl)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func report(w io.Writer, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
