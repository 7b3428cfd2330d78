package registrar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/companion/internal/registrar"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *registrar.EdgeClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return registrar.NewEdgeClient(srv.URL, "test-token", "team_123", srv.Client())
}

func TestEdgeClientRegister(t *testing.T) {
	t.Parallel()

	t.Run("happy path returns ref and challenges", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/domains", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "team_123", r.URL.Query().Get("teamId"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "coach-a.com", body["name"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":   "dom_abc",
				"name": "coach-a.com",
				"verification": []map[string]string{
					{"type": "TXT", "domain": "_verify.coach-a.com", "value": "tok123"},
				},
			})
		})

		res, err := client.Register(context.Background(), "coach-a.com")
		require.NoError(t, err)
		assert.Equal(t, "dom_abc", res.RegistrarRef)
		assert.False(t, res.AlreadyExists)
		require.Len(t, res.Challenges, 1)
		assert.Equal(t, "TXT", res.Challenges[0].Type)
		assert.Equal(t, "tok123", res.Challenges[0].Value)
	})

	t.Run("conflict is non-fatal", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "domain_already_exists", "message": "already in use"},
			})
		})

		res, err := client.Register(context.Background(), "coach-a.com")
		require.NoError(t, err)
		assert.True(t, res.AlreadyExists)
	})

	t.Run("server error is an error", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Register(context.Background(), "coach-a.com")
		assert.Error(t, err)
	})
}

func TestEdgeClientRequestVerification(t *testing.T) {
	t.Parallel()

	t.Run("verified outcome", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/domains/coach-a.com/verify", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"verified": true,
				"certificates": []map[string]any{
					{"id": "cert_1", "status": "issued"},
				},
			})
		})

		outcome, err := client.RequestVerification(context.Background(), "coach-a.com")
		require.NoError(t, err)

		verified, ok := outcome.(registrar.Verified)
		require.True(t, ok, "expected Verified, got %T", outcome)
		require.Len(t, verified.Certificates, 1)
		assert.Equal(t, "issued", verified.Certificates[0].Status)
	})

	t.Run("challenge outcome", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"verified": false,
				"verification": []map[string]string{
					{"type": "TXT", "domain": "_verify.coach-a.com", "value": "tok123", "reason": "pending_domain_verification"},
				},
			})
		})

		outcome, err := client.RequestVerification(context.Background(), "coach-a.com")
		require.NoError(t, err)

		challenge, ok := outcome.(registrar.ChallengeRequired)
		require.True(t, ok, "expected ChallengeRequired, got %T", outcome)
		assert.Equal(t, "_verify.coach-a.com", challenge.Challenge.Name)
	})

	t.Run("unverified outcome without challenge", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"verified": false})
		})

		outcome, err := client.RequestVerification(context.Background(), "coach-a.com")
		require.NoError(t, err)

		unverified, ok := outcome.(registrar.Unverified)
		require.True(t, ok, "expected Unverified, got %T", outcome)
		assert.NotEmpty(t, unverified.Reason)
	})
}

func TestEdgeClientConfig(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/domains/coach-a.com/config", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"misconfigured": false})
	})

	cfg, err := client.Config(context.Background(), "coach-a.com")
	require.NoError(t, err)
	assert.False(t, cfg.Misconfigured)
}

func TestEdgeClientDeregister(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/v1/domains/coach-a.com", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		assert.NoError(t, client.Deregister(context.Background(), "coach-a.com"))
	})

	t.Run("not found is success", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		assert.NoError(t, client.Deregister(context.Background(), "coach-a.com"))
	})
}
