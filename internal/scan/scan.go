// Package scan runs configured scanner subprocesses against one repository
// folder at a time, writing findings to a per-folder artifact and
// diagnostics to a shared error log.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cybrota/igloo/internal/config"
	"github.com/cybrota/igloo/internal/discover"
)

// ErrorLogName is the shared diagnostic file inside the output directory.
// It is opened O_APPEND so concurrent jobs interleave without clobbering.
const ErrorLogName = "error.log"

// Executor runs every enabled scanner against a folder. One Executor is
// shared by all scan jobs of a run; it holds no per-job state.
type Executor struct {
	scanners   []config.Scanner
	outputPath string
}

func NewExecutor(cfg *config.Config, outputPath string) (*Executor, error) {
	if len(cfg.Scanners) == 0 {
		return nil, fmt.Errorf("no scanners configured")
	}
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return nil, fmt.Errorf("create output path: %w", err)
	}
	return &Executor{scanners: cfg.Scanners, outputPath: outputPath}, nil
}

// ArtifactPath is where findings for the named folder are written.
func (e *Executor) ArtifactPath(name string) string {
	return filepath.Join(e.outputPath, name+".json")
}

// Run scans one folder. Every scanner's stdout is appended to the folder's
// artifact and stderr to the shared error log. A failing scanner is noted
// in the error log and the job's error, but the remaining scanners still
// run.
func (e *Executor) Run(ctx context.Context, folder discover.Folder) error {
	artifact, err := os.Create(e.ArtifactPath(folder.Name))
	if err != nil {
		return fmt.Errorf("create artifact for %s: %w", folder.Name, err)
	}
	defer artifact.Close()

	errLog, err := os.OpenFile(filepath.Join(e.outputPath, ErrorLogName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer errLog.Close()

	var errs []error
	for _, sc := range e.scanners {
		if err := runScanner(ctx, sc, folder, artifact, errLog); err != nil {
			fmt.Fprintf(errLog, "%s: %s: %v\n", folder.Name, sc.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", sc.Name, err))
		}
	}
	return errors.Join(errs...)
}

func runScanner(ctx context.Context, sc config.Scanner, folder discover.Folder, artifact, errLog *os.File) error {
	env := os.Environ()
	for _, key := range sc.EnvVars {
		env = append(env, fmt.Sprintf("%s=%s", key, os.Getenv(key)))
	}
	if len(sc.PreCommand) > 0 {
		pre := exec.CommandContext(ctx, sc.PreCommand[0], sc.PreCommand[1:]...)
		pre.Dir = folder.Path
		pre.Env = env
		pre.Stdout = errLog
		pre.Stderr = errLog
		if err := pre.Run(); err != nil {
			return fmt.Errorf("pre-command failed: %w", err)
		}
	}
	if len(sc.Command) == 0 {
		return fmt.Errorf("no command specified")
	}
	// The target path is passed as a discrete argument, never through a
	// shell, so folder names with metacharacters stay inert.
	args := append(append([]string{}, sc.Command[1:]...), folder.Path)
	cmd := exec.CommandContext(ctx, sc.Command[0], args...)
	cmd.Env = env
	cmd.Stdout = artifact
	cmd.Stderr = errLog
	return cmd.Run()
}
