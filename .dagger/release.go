package main

import (
	"context"
	"fmt"
	"path"

	"dagger/intents/internal/dagger"
)

// bucket is an S3-compatible destination for release artifacts.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// withChecksums adds a SHA256SUMS file covering every artifact.
func (i *Intents) withChecksums(ctx context.Context, artifacts *dagger.Directory) (*dagger.Directory, error) {
	sums, err := dag.Container().
		From("alpine:3").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f ! -name SHA256SUMS | sort | xargs sha256sum > SHA256SUMS"}).
		File("/artifacts/SHA256SUMS").
		Sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing checksums: %w", err)
	}
	return artifacts.WithFile("SHA256SUMS", sums), nil
}

// publish syncs artifacts to each prefix of the bucket in turn.
func (i *Intents) publish(
	ctx context.Context,
	artifacts *dagger.Directory,
	dest bucket,
	prefixes ...string,
) error {
	name, err := dest.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := dest.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", dest.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", dest.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		_, err := awsCli.
			WithExec([]string{
				"aws", "s3", "sync", ".",
				"s3://" + path.Join(name, prefix),
				"--endpoint-url", endpoint,
				"--delete",
			}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("uploading artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// ReleaseLatest builds checksummed release binaries and publishes them under
// the version prefix, then under "latest"
func (i *Intents) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts, err := i.withChecksums(ctx, i.BuildRelease(ctx, version, commit))
	if err != nil {
		return nil, err
	}

	dest := bucket{endpoint, bucketName, accessKeyId, secretAccessKey}
	return artifacts, i.publish(ctx, artifacts, dest, version, "latest")
}

// Nightly builds checksummed binaries and publishes them under "nightly"
func (i *Intents) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	const prefix = "nightly"

	artifacts, err := i.withChecksums(ctx, i.BuildRelease(ctx, prefix, commit))
	if err != nil {
		return nil, err
	}

	dest := bucket{endpoint, bucketName, accessKeyId, secretAccessKey}
	return artifacts, i.publish(ctx, artifacts, dest, prefix)
}
