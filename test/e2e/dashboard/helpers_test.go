package dashboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common helpers for dashboard end-to-end tests: container lifecycle,
 * a minimal JSON API client, and credential discovery.
 */

const testImageName = "partnerdesk-test:latest"

// TestMain builds the Docker image once before all tests and cleans it up
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building PartnerDesk Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up PartnerDesk Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.Command("docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/partnerdesk/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.Command("docker", "rmi", "-f", testImageName).Run()
}

// setupContainer starts the dashboard with an import directory mounted from
// the host, so tests can drop spreadsheets in and watch them land.
func setupContainer(t *testing.T, importDir string) (baseURL string, container testcontainers.Container) {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"ENV":        "test",
		"LOG_LEVEL":  "info",
		"LOG_FORMAT": "json",

		"PD_STORAGE_BACKEND": "sqlite",
		"PD_IMPORT_DIR":      "/imports",

		// Loosen rate limits: e2e tests fire requests far faster than the
		// production strict profile allows.
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}
	if importDir != "" {
		req.HostConfigModifier = func(hc *dockercontainer.HostConfig) {
			hc.Binds = append(hc.Binds, importDir+":/imports")
		}
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := c.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := c.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port()), c
}

var adminPasswordPattern = regexp.MustCompile(`"password":"([^"]+)"`)

// adminPassword digs the generated bootstrap password out of the container
// log. The dashboard prints it exactly once on first start.
func adminPassword(t *testing.T, c testcontainers.Container) string {
	t.Helper()

	rc, err := c.Logs(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	logs, err := io.ReadAll(rc)
	require.NoError(t, err)

	m := adminPasswordPattern.FindSubmatch(logs)
	require.NotNil(t, m, "bootstrap password not found in container logs")
	return string(m[1])
}

// client is a minimal JSON API client carrying the session token.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// do sends a JSON request and decodes the response into out (when non-nil).
// Returns the status code.
func (c *client) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type loginResult struct {
	RequiresTwoFactor bool   `json:"requiresTwoFactor"`
	Token             string `json:"token"`
	User              struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// login authenticates and attaches the session token to the client.
func (c *client) login(t *testing.T, identifier, password string) loginResult {
	t.Helper()

	var result loginResult
	status := c.do(t, http.MethodPost, "/v1/auth/login", map[string]any{
		"identifier": identifier,
		"password":   password,
	}, &result)
	require.Equal(t, http.StatusOK, status)
	require.False(t, result.RequiresTwoFactor)
	require.NotEmpty(t, result.Token)

	c.token = result.Token
	return result
}
