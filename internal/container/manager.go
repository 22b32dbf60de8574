// Package container runs candidate code in short-lived, isolated Docker containers.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	// Container configuration.
	containerUser   = "65534"
	workingDir      = "/tmp"
	stopTimeoutSecs = 1

	// Resource limits.
	memoryLimitBytes = 128 * 1024 * 1024 // 128MB
	cpuQuota         = 50000             // 0.5 CPU
	pidsLimit        = 64
	tmpfsOptions     = "rw,noexec,nosuid,size=16m"

	// Only the last maxOutputBytes of each stream are kept.
	maxOutputBytes = 64 * 1024

	// SandboxLabel marks containers created by this package.
	SandboxLabel = "interviewer.sandbox"

	cleanupTimeout = 10 * time.Second
)

// Execution is the outcome of one sandboxed script run.
type Execution struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Manager defines the interface for sandboxed script execution.
type Manager interface {
	// EnsureImage pulls the sandbox image if it is not present locally.
	EnsureImage(ctx context.Context) error

	// RunScript executes a Python script in a fresh container and removes it.
	// A run exceeding timeout is killed and reported with TimedOut set.
	RunScript(ctx context.Context, script string, timeout time.Duration) (Execution, error)

	// ListSandboxes returns the IDs of sandbox containers created before olderThan.
	ListSandboxes(ctx context.Context, olderThan time.Time) ([]string, error)

	// StopContainer stops and removes a container.
	StopContainer(ctx context.Context, containerID string) error

	// Close releases the Docker client.
	Close() error
}

var _ Manager = (*DockerManager)(nil)

// DockerManager implements Manager using the Docker API.
type DockerManager struct {
	cli     *client.Client
	image   string
	runtime string // Container runtime: "" = default (runc), "runsc" = gVisor
}

// NewDockerManager creates a Docker-backed sandbox for image.
// runtime can be "" for default Docker runtime or "runsc" for gVisor.
func NewDockerManager(imageRef, runtime string) (*DockerManager, error) {
	if imageRef == "" {
		return nil, fmt.Errorf("sandbox image is required")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if runtime != "" {
		slog.Info("Docker client initialized", "runtime", runtime, "image", imageRef)
	} else {
		slog.Info("Docker client initialized", "runtime", "default", "image", imageRef)
	}
	return &DockerManager{cli: cli, image: imageRef, runtime: runtime}, nil
}

// EnsureImage pulls the sandbox image if it is missing.
func (m *DockerManager) EnsureImage(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.image); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", m.image, err)
	}

	slog.Info("Pulling sandbox image", "image", m.image)
	rc, err := m.cli.ImagePull(ctx, m.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", m.image, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			slog.Debug("failed to close image pull stream", "error", closeErr)
		}
	}()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", m.image, err)
	}
	slog.Info("Sandbox image ready", "image", m.image)
	return nil
}

// RunScript executes script with python3 in a network-less container.
func (m *DockerManager) RunScript(ctx context.Context, script string, timeout time.Duration) (Execution, error) {
	config := &container.Config{
		Image:           m.image,
		User:            containerUser,
		WorkingDir:      workingDir,
		Cmd:             []string{"python3", "-I", "-c", script},
		NetworkDisabled: true,
		Labels:          map[string]string{SandboxLabel: "1"},
	}

	hostConfig := &container.HostConfig{
		Runtime:        m.runtime,
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{workingDir: tmpfsOptions},
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}

	resp, err := m.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return Execution{}, fmt.Errorf("create container: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := m.StopContainer(cleanupCtx, resp.ID); err != nil {
			slog.Warn("Failed to remove sandbox container", "container_id", resp.ID, "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh, errCh := m.cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNextExit)

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return Execution{}, fmt.Errorf("start container %s: %w", resp.ID, err)
	}

	var exec Execution
	select {
	case status := <-statusCh:
		exec.ExitCode = int(status.StatusCode)
		if status.Error != nil && status.Error.Message != "" {
			return Execution{}, fmt.Errorf("wait container %s: %s", resp.ID, status.Error.Message)
		}
	case err := <-errCh:
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			exec.TimedOut = true
			return exec, nil
		}
		return Execution{}, fmt.Errorf("wait container %s: %w", resp.ID, err)
	}

	stdout, stderr, err := m.logs(ctx, resp.ID)
	if err != nil {
		return Execution{}, err
	}
	exec.Stdout = stdout
	exec.Stderr = stderr
	return exec, nil
}

func (m *DockerManager) logs(ctx context.Context, containerID string) (string, string, error) {
	rc, err := m.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", fmt.Errorf("read logs of %s: %w", containerID, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			slog.Debug("failed to close log stream", "container_id", containerID, "error", closeErr)
		}
	}()

	stdout := newTailBuffer(maxOutputBytes)
	stderr := newTailBuffer(maxOutputBytes)
	if _, err := stdcopy.StdCopy(stdout, stderr, rc); err != nil {
		return "", "", fmt.Errorf("demultiplex logs of %s: %w", containerID, err)
	}
	return stdout.String(), stderr.String(), nil
}

// ListSandboxes returns sandbox containers created before olderThan.
func (m *DockerManager) ListSandboxes(ctx context.Context, olderThan time.Time) ([]string, error) {
	list, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", SandboxLabel)),
	})
	if err != nil {
		return nil, fmt.Errorf("list sandbox containers: %w", err)
	}

	var ids []string
	for _, c := range list {
		if time.Unix(c.Created, 0).Before(olderThan) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// StopContainer stops and removes a container.
// It is idempotent and handles concurrent calls gracefully.
func (m *DockerManager) StopContainer(ctx context.Context, containerID string) error {
	timeout := stopTimeoutSecs
	if err := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			slog.Debug("Container already removed", "container_id", containerID)
			return nil
		}
		slog.Debug("Container stop returned error, continuing to remove", "container_id", containerID, "error", err)
	}

	// Remove the container (force to ensure it's removed even if stop failed)
	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		if strings.Contains(err.Error(), "is already in progress") {
			slog.Debug("Container removal already in progress", "container_id", containerID)
			return nil
		}
		return fmt.Errorf("remove container %s: %w", containerID, err)
	}
	return nil
}

// Close releases the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

func ptr[T any](v T) *T {
	return &v
}
