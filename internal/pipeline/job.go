// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"maptools-cli/internal/fsutil"
	"maptools-cli/pkg/types"
)

const (
	serverSuffix = "_server"
	clientSuffix = "_client"
)

type (
	// RetryPolicy configures staging teardown.
	RetryPolicy struct {
		Attempts int
		Delay    time.Duration
	}

	// Job is the immutable description of one packaging run.
	Job struct {
		// InputPath is a .vpk container or a zip/7z/rar archive.
		InputPath string
		// OutputDir receives the packages. Defaults to the input's directory.
		OutputDir string
		Format    types.OutputFormat
		// CheckDictionary enables the level audit and rebuild stages.
		CheckDictionary bool
		// AutoRebuild rebuilds deficient levels without asking.
		AutoRebuild bool
		// EnginePath is the game executable. When empty the controller's
		// EngineResolver is consulted once a rebuild is needed.
		EnginePath    string
		LaunchOptions []string
		// OutputName overrides the base name of the produced packages.
		OutputName    string
		GameDir       string
		EngineTimeout time.Duration
		Retry         RetryPolicy
	}
)

// DefaultRetryPolicy mirrors the fsutil defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: fsutil.DefaultMaxAttempts, Delay: fsutil.DefaultRetryDelay}
}

// Validate checks the fields that can be verified before the job starts.
func (j Job) Validate() error {
	var errs []error
	if strings.TrimSpace(j.InputPath) == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if j.Format != "" {
		if err := j.Format.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, o := range j.LaunchOptions {
		if err := types.LaunchOption(o).Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if j.OutputName != "" && strings.ContainsAny(j.OutputName, `/\`) {
		errs = append(errs, fmt.Errorf("output name %q must not contain path separators", j.OutputName))
	}
	return errors.Join(errs...)
}

func (j Job) outputDir() string {
	if j.OutputDir != "" {
		return j.OutputDir
	}
	return filepath.Dir(j.InputPath)
}

func (j Job) format() types.OutputFormat {
	if j.Format == "" {
		return types.DefaultOutputFormat
	}
	return j.Format
}

func (j Job) launchOptions() []string { return slices.Clone(j.LaunchOptions) }

// ServerContainerName returns the file name of the server container for base.
func ServerContainerName(base string) string { return base + serverSuffix + ".vpk" }

// ClientContainerName returns the file name of the client container for base.
func ClientContainerName(base string) string { return base + clientSuffix + ".vpk" }
