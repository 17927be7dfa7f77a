package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type result struct {
	Image       string `json:"image" yaml:"image"`
	Provider    string `json:"provider" yaml:"provider"`
	Description string `json:"description" yaml:"description"`
	Question    string `json:"question,omitempty" yaml:"question,omitempty"`
	Answer      string `json:"answer,omitempty" yaml:"answer,omitempty"`
}

func checkFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func writeResult(w io.Writer, format string, r result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		if _, err := fmt.Fprintf(w, "Image Analysis\n\n%s\n", r.Description); err != nil {
			return err
		}
		if r.Question == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, "\nQuestion: %s\n\nAnalysis Result\n\n%s\n", r.Question, r.Answer)
		return err
	}
}
