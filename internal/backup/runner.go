package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kadirbelkuyu/dbsaver/pkg/logger"

	"github.com/sirupsen/logrus"
)

// CommandRunner executes an external command and returns its diagnostic output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (string, error)
}

type execRunner struct {
	log *logger.Logger
}

// NewExecRunner runs commands as subprocesses. Output is mirrored to the
// logger at debug level and stderr is returned as the diagnostic text.
func NewExecRunner(log *logger.Logger) CommandRunner {
	return &execRunner{log: log}
}

func (r *execRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	writer := r.log.WriterLevel(logrus.DebugLevel)
	defer writer.Close()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = writer
	cmd.Stderr = io.MultiWriter(&stderr, writer)

	r.log.Debugf("executing %s %s", name, strings.Join(redact(args), " "))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stderr.String(), fmt.Errorf("%s aborted: %w", name, ctx.Err())
		}
		return stderr.String(), fmt.Errorf("%s failed: %w", name, err)
	}

	return stderr.String(), nil
}

// redact hides connection strings, which usually embed credentials.
func redact(args []string) []string {
	out := make([]string, len(args))
	hideNext := false
	for i, arg := range args {
		switch {
		case hideNext:
			out[i] = "***"
			hideNext = false
		case arg == "--uri":
			out[i] = arg
			hideNext = true
		case strings.HasPrefix(arg, "--uri="), strings.HasPrefix(arg, "--dbname="):
			out[i] = arg[:strings.Index(arg, "=")+1] + "***"
		default:
			out[i] = arg
		}
	}
	return out
}
