// Package testutil provides browser helpers shared by the end-to-end tests.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	dockerImage           = "chromedp/headless-shell:stable"
	chromeContainerPrefix = "chrome-e2e-mint-"
)

// DockerChrome is a headless Chrome running in Docker.
type DockerChrome struct {
	// Context is a chromedp browser context bound to the container.
	Context context.Context
	// URL is the DevTools endpoint, usable as a HeadlessRunner RemoteURL.
	URL  string
	Port int
}

// SetupDockerChrome starts a headless Chrome container and returns a
// chromedp context for it. The test is skipped when Docker is unavailable.
// Call cleanup when done to stop the container.
func SetupDockerChrome(t *testing.T, timeout time.Duration) (*DockerChrome, func()) {
	t.Helper()

	port, err := freePort()
	if err != nil {
		t.Fatalf("Failed to allocate Chrome port: %v", err)
	}
	if err := startDockerChrome(t, port); err != nil {
		t.Fatalf("Failed to start Docker Chrome: %v", err)
	}

	chromeURL := fmt.Sprintf("http://localhost:%d", port)
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), chromeURL)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)

	cleanup := func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
		stopDockerChrome(t, port)
	}
	return &DockerChrome{Context: ctx, URL: chromeURL, Port: port}, cleanup
}

// ChromeURL converts an httptest URL into one the container can reach.
// On Linux the container shares the host network; elsewhere it must go
// through host.docker.internal.
func ChromeURL(httptestURL string) string {
	host := "localhost"
	if runtime.GOOS != "linux" {
		host = "host.docker.internal"
	}
	url := strings.Replace(httptestURL, "127.0.0.1", host, 1)
	return strings.Replace(url, "[::1]", host, 1)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func startDockerChrome(t *testing.T, port int) error {
	t.Helper()

	if _, err := exec.Command("docker", "version").CombinedOutput(); err != nil {
		t.Skip("Docker not available, skipping E2E test")
	}

	name := fmt.Sprintf("%s%d", chromeContainerPrefix, port)
	_, _ = exec.Command("docker", "rm", "-f", name).CombinedOutput()

	if _, err := exec.Command("docker", "image", "inspect", dockerImage).CombinedOutput(); err != nil {
		t.Log("Pulling chromedp/headless-shell Docker image...")
		pullCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if output, err := exec.CommandContext(pullCtx, "docker", "pull", dockerImage).CombinedOutput(); err != nil {
			if pullCtx.Err() == context.DeadlineExceeded {
				t.Fatal("Docker pull timed out after 60 seconds")
			}
			t.Fatalf("Failed to pull Docker image: %v\nOutput: %s", err, output)
		}
	}

	// Linux shares the host network; macOS maps the port to the
	// container's default 9222.
	args := []string{"run", "-d", "--rm", "--memory", "512m", "--cpus", "0.5", "--name", name}
	if runtime.GOOS == "linux" {
		args = append(args, "--network", "host", dockerImage, fmt.Sprintf("--remote-debugging-port=%d", port))
	} else {
		args = append(args, "-p", fmt.Sprintf("%d:9222", port), dockerImage)
	}
	if _, err := exec.Command("docker", args...).Output(); err != nil {
		return fmt.Errorf("failed to start Chrome Docker container: %w", err)
	}

	versionURL := fmt.Sprintf("http://localhost:%d/json/version", port)
	client := &http.Client{Timeout: 2 * time.Second}
	var lastErr error
	for i := 0; i < 120; i++ {
		resp, err := client.Get(versionURL)
		if err == nil {
			resp.Body.Close()
			t.Logf("Chrome ready after %.1fs", float64(i+1)*0.5)
			return nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}

	if output, err := exec.Command("docker", "logs", "--tail", "50", name).CombinedOutput(); err == nil && len(output) > 0 {
		t.Logf("Chrome container logs:\n%s", output)
	}
	_, _ = exec.Command("docker", "rm", "-f", name).CombinedOutput()
	return fmt.Errorf("Chrome failed to start within 60 seconds: %w", lastErr)
}

func stopDockerChrome(t *testing.T, port int) {
	t.Helper()
	name := fmt.Sprintf("%s%d", chromeContainerPrefix, port)
	if output, err := exec.Command("docker", "rm", "-f", name).CombinedOutput(); err != nil {
		if !strings.Contains(string(output), "No such container") {
			t.Logf("Warning: Failed to remove Docker container: %v (output: %s)", err, output)
		}
	}
}
