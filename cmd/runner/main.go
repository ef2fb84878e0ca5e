// Command runner drives one submission through the sandboxed judge
// pipeline and writes exactly one verdict JSON document to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ntpoppe/tracepoint/internal/config"
	"github.com/ntpoppe/tracepoint/internal/idgen"
	"github.com/ntpoppe/tracepoint/internal/runner"
	"github.com/ntpoppe/tracepoint/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	keep := hasKeepFlag(os.Args[1:])

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracepoint: load config: %v\n", err)
	}

	if logErr := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "tracepoint-runner",
	}); logErr != nil {
		fmt.Fprintf(os.Stderr, "tracepoint: init logger: %v\n", logErr)
	}
	defer logger.Sync()

	submissionID := idgen.NewSubmissionID()
	r := runner.New(cfg, sandboxBinary())

	v, exitCode := r.Run(context.Background(), submissionID, keep)

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "tracepoint: encode verdict: %v\n", err)
		return 1
	}
	return exitCode
}

// hasKeepFlag reports whether any argument is "--keep" case-insensitively.
func hasKeepFlag(args []string) bool {
	for _, a := range args {
		if strings.EqualFold(a, "--keep") {
			return true
		}
	}
	return false
}

func sandboxBinary() string {
	if bin := os.Getenv("TRACEPOINT_SANDBOX_BINARY"); bin != "" {
		return bin
	}
	return "docker"
}
