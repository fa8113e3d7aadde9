// policyctl inspects the compiled clinic grant table.
//
// Usage:
//
//	policyctl table [--format text|json|yaml]
//	policyctl role <role> [--format text|json|yaml]
//	policyctl check <role> <resource> <action>
//
// check exits 0 when the role is allowed and 1 when it is denied, so it
// can gate shell scripts.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/upb/clinic-admin/internal/auth"
	"github.com/upb/clinic-admin/internal/policy"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// exitError ends the process with code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var format string

	flagSet := pflag.NewFlagSet("policyctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	switch format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("missing command")
	}

	table := policy.Default()
	cmd, rest := rest[0], rest[1:]

	switch cmd {
	case "table":
		if len(rest) != 0 {
			return fmt.Errorf("table takes no arguments, got %d", len(rest))
		}
		return writeTable(stdout, table, format)

	case "role":
		if len(rest) != 1 {
			return errors.New("usage: policyctl role <role>")
		}
		role := auth.NormalizeRole(rest[0])
		return writeRole(stdout, role, table.RoleSummary(role), format)

	case "check":
		if len(rest) != 3 {
			return errors.New("usage: policyctl check <role> <resource> <action>")
		}
		role := auth.NormalizeRole(rest[0])
		guard := table.Authorize(policy.Resource(rest[1]), policy.Action(rest[2]))
		if err := guard.Check(&policy.Identity{Role: role}); err != nil {
			fmt.Fprintf(stdout, "denied: %v\n", err)
			return &exitError{code: 1}
		}
		fmt.Fprintf(stdout, "allowed: %s may %s %s\n", role, rest[2], rest[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type tableDocument struct {
	Roles   []policy.Role          `json:"roles" yaml:"roles"`
	Actions []policy.Action        `json:"actions" yaml:"actions"`
	Grants  []policy.ResourceGrant `json:"grants" yaml:"grants"`
}

type roleDocument struct {
	Role        policy.Role                  `json:"role" yaml:"role"`
	Permissions []policy.ResourcePermissions `json:"permissions" yaml:"permissions"`
}

func writeTable(w io.Writer, table *policy.Table, format string) error {
	doc := tableDocument{
		Roles:   table.Roles(),
		Actions: policy.Actions,
		Grants:  table.Grants(),
	}
	if format != formatText {
		return encode(w, doc, format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RESOURCE\t%s\n", strings.ToUpper(joinActions(policy.Actions, "\t")))
	for _, rg := range doc.Grants {
		cells := make([]string, len(policy.Actions))
		for i, action := range policy.Actions {
			cells[i] = "-"
			for _, ag := range rg.Actions {
				if ag.Action == action {
					cells[i] = joinRoles(ag.Roles)
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", rg.Resource, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeRole(w io.Writer, role policy.Role, summary []policy.ResourcePermissions, format string) error {
	if format != formatText {
		return encode(w, roleDocument{Role: role, Permissions: summary}, format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ROLE %s\n", role)
	fmt.Fprintf(tw, "RESOURCE\t%s\n", strings.ToUpper(joinActions(policy.Actions, "\t")))
	for _, row := range summary {
		cells := make([]string, len(policy.Actions))
		for i, action := range policy.Actions {
			cells[i] = "-"
			for _, ap := range row.Actions {
				if ap.Action != action {
					continue
				}
				cells[i] = "no"
				if ap.Allowed {
					cells[i] = "yes"
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", row.Resource, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func encode(w io.Writer, v interface{}, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

func joinActions(actions []policy.Action, sep string) string {
	s := make([]string, len(actions))
	for i, a := range actions {
		s[i] = string(a)
	}
	return strings.Join(s, sep)
}

func joinRoles(roles []policy.Role) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, ",")
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `policyctl inspects the clinic grant table.

Usage:
  policyctl table [flags]
  policyctl role <role> [flags]
  policyctl check <role> <resource> <action>

Flags:
%s`, flagSet.FlagUsages())
}
