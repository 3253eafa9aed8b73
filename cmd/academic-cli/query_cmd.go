package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

type queryCommand struct {
	method string
	// args lists the required flags in RPC parameter order.
	args []string
	help string
}

var queryCommands = map[string]queryCommand{
	"chain-info":  {method: "academic_chainInfo", help: "Chain id, program id and state root"},
	"config":      {method: "academic_getConfig", help: "Program configuration"},
	"course":      {method: "academic_getCourse", args: []string{"course"}, help: "A course record"},
	"courses":     {method: "academic_listCourses", help: "All courses"},
	"enrollment":  {method: "academic_getEnrollment", args: []string{"student", "course"}, help: "One enrollment with its passing flag"},
	"enrollments": {method: "academic_listEnrollments", args: []string{"student"}, help: "A student's enrollments"},
	"profile":     {method: "academic_getProfile", args: []string{"student"}, help: "A student profile"},
	"credits":     {method: "academic_getCreditBalance", args: []string{"student"}, help: "A student's credit balance"},
	"account":     {method: "academic_getAccount", args: []string{"address"}, help: "Native balance and nonce"},
	"marker":      {method: "academic_getMarker", args: []string{"marker"}, help: "A certificate or graduation marker"},
	"markers":     {method: "academic_listMarkers", args: []string{"owner"}, help: "Markers held by an owner"},
	"receipt":     {method: "academic_getReceipt", args: []string{"hash"}, help: "A transaction receipt"},
	"transcript":  {method: "academic_getTranscript", args: []string{"student"}, help: "Indexed history (requires the indexer)"},
}

func runQueryCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, queryUsage())
		return 1
	}
	if args[0] == "passing" {
		return runQueryPassing(args[1:], stdout, stderr)
	}
	cmd, ok := queryCommands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown query: %s\n", args[0])
		fmt.Fprintln(stderr, queryUsage())
		return 1
	}
	fs := flag.NewFlagSet("query "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	values := make([]*string, len(cmd.args))
	for i, name := range cmd.args {
		values[i] = fs.String(name, "", name)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	params := make([]interface{}, 0, len(values))
	for i, v := range values {
		// Course ids are keys and go through untouched.
		if cmd.args[i] == "course" {
			params = append(params, *v)
			continue
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			fmt.Fprintf(stderr, "Error: --%s is required\n", cmd.args[i])
			return 1
		}
		params = append(params, trimmed)
	}
	return query(cmd.method, params, stdout, stderr)
}

func runQueryPassing(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("query passing", flag.ContinueOnError)
	fs.SetOutput(stderr)
	grade := fs.Uint("grade", 0, "grade to check")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *grade > 255 {
		fmt.Fprintf(stderr, "Error: --grade %d out of range\n", *grade)
		return 1
	}
	return query("academic_isPassingGrade", []interface{}{*grade}, stdout, stderr)
}

func queryUsage() string {
	names := make([]string, 0, len(queryCommands)+1)
	for name := range queryCommands {
		names = append(names, name)
	}
	names = append(names, "passing")
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage:\n  academic-cli query <name> [flags]\n\nQueries:\n")
	for _, name := range names {
		help := "Whether a grade passes"
		if cmd, ok := queryCommands[name]; ok {
			help = cmd.help
		}
		fmt.Fprintf(&b, "  %-12s %s\n", name, help)
	}
	return strings.TrimRight(b.String(), "\n")
}
