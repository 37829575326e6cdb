package executor

import (
	"fmt"
	"slices"

	"github.com/gosimple/slug"
	"github.com/mattn/go-shellwords"

	"spotbroker/internal/app/auction"
	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

// Factory turns job requests into runnable tasks. Every command line is
// the configured prefix followed by the client's command.
type Factory struct {
	prefix []string
}

// NewFactory parses prefix with shell quoting rules, e.g. "docker run --rm python".
func NewFactory(prefix string) (*Factory, error) {
	args, err := shellwords.Parse(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid executor command %q: %w", prefix, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("executor command cannot be empty")
	}
	return &Factory{prefix: args}, nil
}

func (f *Factory) New(req model.JobRequest, jobID string) (auction.Task, error) {
	userArgs, err := shellwords.Parse(req.ScriptParameters.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid command: %v: %w", err, common.ErrValidation)
	}
	if len(userArgs) == 0 {
		return nil, fmt.Errorf("command is empty: %w", common.ErrValidation)
	}

	args := slices.Clone(f.prefix)
	container := ""
	if len(args) >= 2 && args[0] == "docker" && args[1] == "run" {
		container = ContainerName(jobID)
		args = slices.Insert(args, 2, "--name", container)
	}
	args = append(args, userArgs...)
	return NewCommandTask(args, container), nil
}

// ContainerName derives a docker-safe name from a job ID.
func ContainerName(jobID string) string {
	return "spotbroker-" + slug.Make(jobID)
}
