package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/relay/pkg/directive"
)

// parsedDirective is the YAML shape of one directive.
type parsedDirective struct {
	Kind     directive.Kind `yaml:"kind"`
	Branch   string         `yaml:"branch,omitempty"`
	Path     string         `yaml:"path,omitempty"`
	Content  string         `yaml:"content,omitempty"`
	Commands string         `yaml:"commands,omitempty"`
}

type parsedResponse struct {
	Summary    *string           `yaml:"summary"`
	Directives []parsedDirective `yaml:"directives"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [response-file]",
		Short: "Print the directives and summary found in a response",
		Long: `Parse is a dry run: it extracts directives and the summary from a model
response (file or stdin) and prints them as YAML. Nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			response, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			out, err := renderParsed(directive.Parse(response))
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func renderParsed(result directive.Result) (string, error) {
	doc := parsedResponse{Directives: []parsedDirective{}}
	if result.HasSummary {
		doc.Summary = &result.Summary
	}

	for _, d := range result.Directives {
		switch d := d.(type) {
		case directive.FileChange:
			doc.Directives = append(doc.Directives, parsedDirective{
				Kind:    d.Kind(),
				Branch:  d.Branch,
				Path:    d.Path,
				Content: d.Content,
			})
		case directive.RunRequest:
			doc.Directives = append(doc.Directives, parsedDirective{
				Kind:     d.Kind(),
				Commands: d.Commands,
			})
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render directives: %w", err)
	}
	return string(data), nil
}
