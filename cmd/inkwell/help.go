// ABOUTME: Help display for the inkwell CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for API key detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w: usage patterns, grouped
// flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "inkwell %s — evidence-driven article pipeline\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  inkwell <job.yaml>                  Run a pipeline from a job file")
	fmt.Fprintln(w, "  inkwell -tui <job.yaml>             Run with the interactive terminal UI")
	fmt.Fprintln(w, "  inkwell -server [-port 2389]        Start the HTTP API server")
	fmt.Fprintln(w, "  inkwell -list                       List stored runs")
	fmt.Fprintln(w, "  inkwell -resume <id> -approve       Approve a suspended run")
	fmt.Fprintln(w, "  inkwell -resume <id> -reject \"...\"  Send the artifact back with feedback")
	fmt.Fprintln(w, "  inkwell -resume <id> -arcs a,b      Select narrative arcs")
	fmt.Fprintln(w, "  inkwell -rollback <id> -point <p>   Rewind to an earlier approval point")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Pipeline Flags:")
	fmt.Fprintln(w, "  -store fs|sqlite   Run store backend (default: fs)")
	fmt.Fprintln(w, "  -data-dir <dir>    Data directory (default: $XDG_DATA_HOME/inkwell)")
	fmt.Fprintln(w, "  -config <file>     YAML rubric and revision-cap overrides")
	fmt.Fprintln(w, "  -retry <policy>    none, standard, or patient (default: none)")
	fmt.Fprintln(w, "  -model <name>      Model name for the LLM provider")
	fmt.Fprintln(w, "  -base-url <url>    Custom API base URL for the LLM provider")
	fmt.Fprintln(w, "  -verbose           Log engine events to stderr")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  inkwell research/notes.yaml")
	fmt.Fprintln(w, "  inkwell -tui -retry standard research/notes.yaml")
	fmt.Fprintln(w, "  inkwell -server -store sqlite")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Environment: %s\n", envStatus())
}

// envStatus reports whether an LLM API key is present in the environment.
func envStatus() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "OPENAI_API_KEY set"
	}
	return "OPENAI_API_KEY not set (required to run pipelines)"
}
