// Intents CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
// It is the main harness for handling nearly all dev operations.
package main

import (
	"context"

	"dagger/intents/internal/dagger"
)

// Intents is the main module for the Intents CI/CD pipeline
type Intents struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Intents CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".intents", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Intents {
	return &Intents{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container for the given
// platform with gcc, libsqlite3-dev, CGO enabled, and the project source
// mounted. An empty platform uses the engine's native platform.
//
// It is the shared foundation for tests, builds, and linting.
func (i *Intents) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", i.Source)
}

// Test runs the intents unit tests via "go test"
func (i *Intents) Test(ctx context.Context) (string, error) {
	return i.goContainer("").
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
