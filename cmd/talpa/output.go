package main

import (
	"encoding/json"
	"fmt"
	"github.com/jxo-me/talpa/cmd/talpa/cliutil"
	"github.com/jxo-me/talpa/sdk/route"
	"gopkg.in/yaml.v3"
	"io"
)

var stepLabels = map[string]string{
	route.StepFetchConfig:    "Fetching tunnel config",
	route.StepValidateExists: "Checking route",
	route.StepComputeRules:   "Computing ingress rules",
	route.StepPushConfig:     "Updating tunnel config",
	route.StepUpsertDNS:      "Creating DNS record",
	route.StepDeleteDNS:      "Deleting DNS record",
}

// progress prints one line per saga step.
type progress struct {
	w io.Writer
}

func (p *progress) observe(ev route.StepEvent) {
	label, ok := stepLabels[ev.Step]
	if !ok {
		label = ev.Step
	}
	switch ev.Phase {
	case route.PhaseStarted:
		fmt.Fprintf(p.w, "%s %s... ", cyan("→"), label)
	case route.PhaseDone, route.PhaseRolledBack:
		fmt.Fprintln(p.w, green("ok"))
	case route.PhaseSkipped:
		fmt.Fprintln(p.w, dim("skipped"))
	case route.PhaseFailed, route.PhaseRollbackFailed:
		fmt.Fprintln(p.w, red("failed"))
	case route.PhaseRollingBack:
		fmt.Fprintf(p.w, "%s Rolling back: %s... ", yellow("↺"), label)
	}
}

type listView struct {
	TunnelID string        `json:"tunnel_id" yaml:"tunnel_id"`
	Routes   []route.Entry `json:"routes" yaml:"routes"`
	Count    int           `json:"count" yaml:"count"`
}

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return cliutil.UsageError("unknown output format %q (text, json or yaml)", format)
}

func writeListing(w io.Writer, format string, l *route.Listing) error {
	view := listView{TunnelID: l.TunnelID, Routes: l.Entries(), Count: l.Count()}
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(view)
	}

	fmt.Fprintf(w, "Routes on tunnel %s:\n", bold(l.TunnelID))
	if l.Count() == 0 {
		fmt.Fprintf(w, "  %s\n", dim("(no routes)"))
	}
	for hostname, service := range l.Routes() {
		fmt.Fprintf(w, "  %s → %s\n", hostname, service)
	}
	if catchAll, ok := l.CatchAll(); ok {
		fmt.Fprintf(w, "  %s\n", dim("* → "+catchAll.Service+" (catch-all)"))
	}
	fmt.Fprintf(w, "%d route(s)\n", l.Count())
	return nil
}
