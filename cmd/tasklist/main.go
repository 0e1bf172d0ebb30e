package main

import (
	"os"
	"strconv"
	"strings"

	"tasklist/internal/cli"
)

func isTaskID(s string) bool {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil && id > 0
}

func rewriteDirectTaskLookupArgs(argv []string) []string {
	// Convenience: `tasklist <id>` works like `tasklist tasks show <id>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (`tasklist --api-url ... 42`), so look for the first
	// positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	// Unrecognized flags are skipped without skipping a value, so they never swallow the id.
	valueFlags := map[string]bool{
		"--api-url": true,
		"--timeout": true,
		"--format":  true,
	}
	boolFlags := map[string]bool{
		"--pretty":  true,
		"--offline": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return insertShow(argv, i+1)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isTaskID(a) {
			return insertShow(argv, i)
		}
		return argv
	}

	return argv
}

func insertShow(argv []string, at int) []string {
	out := make([]string, 0, len(argv)+2)
	out = append(out, argv[:at]...)
	out = append(out, "tasks", "show")
	return append(out, argv[at:]...)
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
