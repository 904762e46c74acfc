package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/jxo-me/talpa/consts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const (
	testAccount = "acc1"
	testZone    = "zone1"
	testTunnel  = "c1744f8b-faa1-48a4-9e5c-02ac921467fa"
	testToken   = "tok"
)

// cloudflareStub serves the tunnel configuration, zone and DNS record
// endpoints for one account.
type cloudflareStub struct {
	mu      sync.Mutex
	config  json.RawMessage
	records []map[string]any
	nextID  int
}

func (s *cloudflareStub) reply(w http.ResponseWriter, status int, result any, extra map[string]any) {
	body := map[string]any{"success": status < 400, "errors": []any{}, "messages": []any{}, "result": result}
	if status >= 400 {
		body["errors"] = []any{map[string]any{"code": status, "message": http.StatusText(status)}}
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *cloudflareStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		s.reply(w, http.StatusUnauthorized, nil, nil)
		return
	}
	configPath := fmt.Sprintf("/accounts/%s/cfd_tunnel/%s/configurations", testAccount, testTunnel)
	recordsPath := fmt.Sprintf("/zones/%s/dns_records", testZone)
	switch {
	case r.URL.Path == configPath && r.Method == http.MethodGet:
		s.reply(w, http.StatusOK, map[string]any{"tunnel_id": testTunnel, "version": 1, "config": s.config}, nil)
	case r.URL.Path == configPath && r.Method == http.MethodPut:
		var body struct {
			Config json.RawMessage `json:"config"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.config = body.Config
		s.reply(w, http.StatusOK, map[string]any{"tunnel_id": testTunnel}, nil)
	case r.URL.Path == "/zones/"+testZone:
		s.reply(w, http.StatusOK, map[string]any{"id": testZone, "name": "example.com"}, nil)
	case r.URL.Path == recordsPath && r.Method == http.MethodGet:
		result := []map[string]any{}
		if p := r.URL.Query().Get("page"); p == "" || p == "1" {
			result = append(result, s.records...)
		}
		s.reply(w, http.StatusOK, result, map[string]any{
			"result_info": map[string]any{"page": 1, "per_page": 100, "count": len(s.records), "total_count": len(s.records), "total_pages": 1},
		})
	case r.URL.Path == recordsPath && r.Method == http.MethodPost:
		var rec map[string]any
		_ = json.NewDecoder(r.Body).Decode(&rec)
		s.nextID++
		rec["id"] = fmt.Sprintf("rec%d", s.nextID)
		s.records = append(s.records, rec)
		s.reply(w, http.StatusOK, rec, nil)
	case strings.HasPrefix(r.URL.Path, recordsPath+"/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(r.URL.Path, recordsPath+"/")
		var rec map[string]any
		_ = json.NewDecoder(r.Body).Decode(&rec)
		for i := range s.records {
			if s.records[i]["id"] == id {
				rec["id"] = id
				s.records[i] = rec
				s.reply(w, http.StatusOK, rec, nil)
				return
			}
		}
		s.reply(w, http.StatusNotFound, nil, nil)
	case strings.HasPrefix(r.URL.Path, recordsPath+"/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, recordsPath+"/")
		for i, rec := range s.records {
			if rec["id"] == id {
				s.records = append(s.records[:i], s.records[i+1:]...)
				s.reply(w, http.StatusOK, map[string]any{"id": id}, nil)
				return
			}
		}
		s.reply(w, http.StatusNotFound, nil, nil)
	default:
		s.reply(w, http.StatusNotFound, nil, nil)
	}
}

func setupEnv(t *testing.T, backend string) *cloudflareStub {
	t.Helper()
	stub := &cloudflareStub{config: json.RawMessage(`{"ingress":[{"service":"http_status:404"}]}`)}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("TALPA_CONFIG_FILE_PATH", filepath.Join(dir, "absent.yaml"))
	t.Setenv("TALPA_API_BASEURL", srv.URL)
	t.Setenv("TALPA_API_MAXRETRIES", "0")
	t.Setenv("TALPA_LOG_OUTPUT", "none")
	t.Setenv("TALPA_CREDENTIALS_BACKEND", backend)
	t.Setenv("TALPA_CREDENTIALS_FILE", filepath.Join(dir, "credentials.yaml"))
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", testAccount)
	t.Setenv("CLOUDFLARE_ZONE_ID", testZone)
	t.Setenv("CLOUDFLARE_TUNNEL_ID", testTunnel)
	t.Setenv("CLOUDFLARE_API_TOKEN", testToken)
	return stub
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{appName, "--no-color"}, args...))
	if err == nil {
		return out.String(), consts.ExitOK
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return out.String(), exitErr.ExitCode()
	}
	// usage errors from flag parsing never reach an action
	return out.String(), consts.ExitInvalidArgument
}

func TestDigListPlug(t *testing.T) {
	stub := setupEnv(t, "env")

	out, code := run(t, "dig", "App.Example.com", "http://localhost:8080")
	require.Equal(t, consts.ExitOK, code, out)
	assert.Contains(t, out, "→ Fetching tunnel config... ok")
	assert.Contains(t, out, "→ Creating DNS record... ok")
	assert.Contains(t, out, "✓ app.example.com → http://localhost:8080")
	assert.Contains(t, out, testTunnel+".cfargotunnel.com")
	require.Len(t, stub.records, 1)
	assert.Equal(t, "app.example.com", stub.records[0]["name"])

	out, code = run(t, "dig", "app.example.com", "http://localhost:8080")
	require.Equal(t, consts.ExitOK, code, out)
	assert.Contains(t, out, "already routes to")

	out, code = run(t, "list", "--output", "json")
	require.Equal(t, consts.ExitOK, code, out)
	var view listView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, "app.example.com", view.Routes[0].Hostname)

	out, code = run(t, "list")
	require.Equal(t, consts.ExitOK, code, out)
	assert.Contains(t, out, "app.example.com → http://localhost:8080")
	assert.Contains(t, out, "* → http_status:404 (catch-all)")
	assert.Contains(t, out, "1 route(s)")

	out, code = run(t, "plug", "app.example.com")
	require.Equal(t, consts.ExitOK, code, out)
	assert.Contains(t, out, "→ Deleting DNS record... ok")
	assert.Contains(t, out, "✓ app.example.com removed")
	assert.Empty(t, stub.records)
	assert.JSONEq(t, `{"ingress":[{"service":"http_status:404"}]}`, string(stub.config))
}

func TestDigForceOverwritesRecord(t *testing.T) {
	stub := setupEnv(t, "env")
	stub.records = []map[string]any{{"id": "old1", "name": "app.example.com", "type": "CNAME", "content": "elsewhere.example.net"}}

	_, code := run(t, "dig", "app.example.com", "http://localhost:8080")
	assert.Equal(t, consts.ExitDNSConflict, code)
	assert.Equal(t, "elsewhere.example.net", stub.records[0]["content"])

	out, code := run(t, "dig", "--force", "app.example.com", "http://localhost:8080")
	require.Equal(t, consts.ExitOK, code, out)
	require.Len(t, stub.records, 1)
	assert.Equal(t, "old1", stub.records[0]["id"])
	assert.Equal(t, testTunnel+".cfargotunnel.com", stub.records[0]["content"])
}

func TestPlugMissingRoute(t *testing.T) {
	setupEnv(t, "env")
	_, code := run(t, "plug", "ghost.example.com")
	assert.Equal(t, consts.ExitRouteNotFound, code)
}

func TestUsageErrors(t *testing.T) {
	setupEnv(t, "env")
	_, code := run(t, "dig", "app.example.com")
	assert.Equal(t, consts.ExitInvalidArgument, code)
	_, code = run(t, "dig", "app.example.com", "localhost")
	assert.Equal(t, consts.ExitInvalidArgument, code)
	_, code = run(t, "list", "-o", "xml")
	assert.Equal(t, consts.ExitInvalidArgument, code)
}

func TestAuthRejected(t *testing.T) {
	setupEnv(t, "env")
	t.Setenv("CLOUDFLARE_API_TOKEN", "wrong")
	_, code := run(t, "list")
	assert.Equal(t, consts.ExitAuthRejected, code)
}

func TestMissingCredentials(t *testing.T) {
	setupEnv(t, "file")
	_, code := run(t, "list")
	assert.Equal(t, consts.ExitCredentialMissing, code)
}

func TestSetupWritesFileStore(t *testing.T) {
	setupEnv(t, "file")
	out, code := run(t, "setup")
	require.Equal(t, consts.ExitOK, code, out)
	assert.Contains(t, out, "Credentials saved to the file store")
	assert.Contains(t, out, "Verifying zone... ok example.com")
	assert.Contains(t, out, "Verifying tunnel... ok 0 route(s)")

	info, err := os.Stat(os.Getenv("TALPA_CREDENTIALS_FILE"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, code = run(t, "list")
	assert.Equal(t, consts.ExitOK, code)
}

func TestSetupRejectsBadTunnelID(t *testing.T) {
	setupEnv(t, "file")
	_, code := run(t, "setup", "--tunnel-id", "not-a-uuid")
	assert.Equal(t, consts.ExitInvalidArgument, code)
}

func TestVersion(t *testing.T) {
	setupEnv(t, "env")
	out, code := run(t, "version")
	assert.Equal(t, consts.ExitOK, code)
	assert.Contains(t, out, "talpa DEV")
}
