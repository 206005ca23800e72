package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/intents/internal/dagger"
)

// Build and return directory of go binaries
func (i *Intents) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// go-sqlite3 needs cgo, so each architecture builds in a container of
	// its own platform rather than cross compiling.
	platforms := []dagger.Platform{"linux/amd64", "linux/arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, platform := range platforms {
		path := string(platform) + "/"

		build := i.goContainer(platform).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/intents"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (i *Intents) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/intents/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/intents/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/intents/pkg/utils.Buildtime=%s'", buildtime),
	}

	return i.Build(ctx, strings.Join(ldflags, " "))
}
