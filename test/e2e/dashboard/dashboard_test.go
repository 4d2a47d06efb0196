package dashboard_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL, _ := setupContainer(t, "")
	api := newClient(baseURL)

	var health struct {
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/livez", nil, &health))
	require.Equal(t, "ok", health.Status)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/readyz", nil, &health))
	require.Equal(t, "ok", health.Status)
}

func TestLoginAndAccountLifecycle(t *testing.T) {
	baseURL, c := setupContainer(t, "")
	password := adminPassword(t, c)

	api := newClient(baseURL)

	t.Run("wrong password is rejected", func(t *testing.T) {
		status := newClient(baseURL).do(t, http.MethodPost, "/v1/auth/login", map[string]any{
			"identifier": "admin",
			"password":   "definitely-wrong",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	result := api.login(t, "admin", password)
	require.Equal(t, "admin", result.User.Role)

	t.Run("me reflects the session", func(t *testing.T) {
		var me struct {
			Username string `json:"username"`
		}
		require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/v1/me", nil, &me))
		require.Equal(t, "admin", me.Username)
	})

	t.Run("provision and deactivate a user", func(t *testing.T) {
		var created struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			InitialPassword string `json:"initialPassword"`
		}
		status := api.do(t, http.MethodPost, "/v1/users", map[string]any{
			"username": "jdoe",
			"email":    "jdoe@example.com",
			"fullName": "Jane Doe",
			"role":     "user",
		}, &created)
		require.Equal(t, http.StatusCreated, status)
		require.NotEmpty(t, created.InitialPassword)

		// The new user can log in with the generated password.
		newClient(baseURL).login(t, "jdoe", created.InitialPassword)

		// Deactivated accounts cannot.
		status = api.do(t, http.MethodPut, "/v1/users/"+created.User.ID+"/active",
			map[string]any{"active": false}, nil)
		require.Equal(t, http.StatusNoContent, status)

		status = newClient(baseURL).do(t, http.MethodPost, "/v1/auth/login", map[string]any{
			"identifier": "jdoe",
			"password":   created.InitialPassword,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("non-admin cannot manage users", func(t *testing.T) {
		var created struct {
			InitialPassword string `json:"initialPassword"`
		}
		status := api.do(t, http.MethodPost, "/v1/users", map[string]any{
			"username": "viewer",
			"email":    "viewer@example.com",
			"role":     "user",
		}, &created)
		require.Equal(t, http.StatusCreated, status)

		viewer := newClient(baseURL)
		viewer.login(t, "viewer", created.InitialPassword)
		require.Equal(t, http.StatusForbidden, viewer.do(t, http.MethodGet, "/v1/users", nil, nil))
	})
}

func TestRegistryCRUD(t *testing.T) {
	baseURL, c := setupContainer(t, "")
	api := newClient(baseURL)
	api.login(t, "admin", adminPassword(t, c))

	var partner struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	status := api.do(t, http.MethodPost, "/v1/partners", map[string]any{
		"partnerId":    "P-01",
		"name":         "Acme Research",
		"type":         "Academic",
		"contactEmail": "lab@acme.example",
	}, &partner)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, partner.ID)

	var fetched struct {
		Name string `json:"name"`
	}
	require.Equal(t, http.StatusOK,
		api.do(t, http.MethodGet, "/v1/partners/"+partner.ID, nil, &fetched))
	require.Equal(t, "Acme Research", fetched.Name)

	var listed []struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK,
		api.do(t, http.MethodGet, "/v1/partners?q=acme", nil, &listed))
	require.Len(t, listed, 1)

	require.Equal(t, http.StatusNoContent,
		api.do(t, http.MethodDelete, "/v1/partners/"+partner.ID, nil, nil))
	require.Equal(t, http.StatusNotFound,
		api.do(t, http.MethodGet, "/v1/partners/"+partner.ID, nil, nil))
}

func TestSpreadsheetImportFlow(t *testing.T) {
	importDir, err := os.MkdirTemp("", "pd-imports-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(importDir) })
	// World-writable so the container user can write the import ledger.
	require.NoError(t, os.Chmod(importDir, 0o777))

	baseURL, c := setupContainer(t, importDir)
	api := newClient(baseURL)
	api.login(t, "admin", adminPassword(t, c))

	csv := "Partner ID,Name,Type,Contact Email\n" +
		"P-07,Acme Research,Academic,lab@acme.example\n"
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "partners.csv"), []byte(csv), 0o644))

	status := api.do(t, http.MethodPost, "/v1/imports/scan", nil, nil)
	require.Contains(t, []int{http.StatusAccepted, http.StatusConflict}, status)

	// The watcher may also pick the file up on its own; either path should
	// land the partner within a few seconds.
	require.Eventually(t, func() bool {
		var listed []struct {
			PartnerID string `json:"partnerId"`
			Name      string `json:"name"`
		}
		if api.do(t, http.MethodGet, "/v1/partners", nil, &listed) != http.StatusOK {
			return false
		}
		for _, p := range listed {
			if p.PartnerID == "P-07" && p.Name == "Acme Research" {
				return true
			}
		}
		return false
	}, 15*time.Second, 500*time.Millisecond)

	var state struct {
		Busy  bool           `json:"busy"`
		Files map[string]any `json:"files"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/v1/imports/state", nil, &state))
	require.NotEmpty(t, state.Files)
}
