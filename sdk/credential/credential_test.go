package credential

import (
	"context"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

var sample = &credential.Credentials{
	AccountID: "acc1",
	ZoneID:    "zone1",
	TunnelID:  "c1744f8b-faa1-48a4-9e5c-02ac921467fa",
	APIToken:  "tok",
}

type exitError int

func (e exitError) Error() string { return "exit status" }
func (e exitError) ExitCode() int { return int(e) }

// fakeSecurity emulates the security(1) subcommands the store uses, both as
// argv and as `security -i` input.
type fakeSecurity struct {
	items map[string]string
	calls [][]string
	stdin []string
}

func (f *fakeSecurity) run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(args) == 1 && args[0] == "-i" {
		f.stdin = append(f.stdin, string(stdin))
		args = splitWords(strings.TrimRight(string(stdin), "\n"))
	}
	opts := map[string]string{}
	for i := 1; i+1 < len(args); i++ {
		if args[i] == "-s" || args[i] == "-a" || args[i] == "-w" {
			opts[args[i]] = args[i+1]
		}
	}
	id := opts["-s"] + "/" + opts["-a"]
	switch args[0] {
	case "find-generic-password":
		v, ok := f.items[id]
		if !ok {
			return nil, exitError(exitItemNotFound)
		}
		return []byte(v + "\n"), nil
	case "add-generic-password":
		f.items[id] = opts["-w"]
		return nil, nil
	}
	return nil, errors.Errorf("unexpected subcommand %s", args[0])
}

// splitWords undoes quoteArg.
func splitWords(line string) []string {
	var (
		words  []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && quoted && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == '"':
			quoted = !quoted
		case c == ' ' && !quoted:
			words = append(words, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(words, cur.String())
}

func TestKeychainStore(t *testing.T) {
	sec := &fakeSecurity{items: map[string]string{}}
	store := NewKeychainStore("", RunnerOption(sec.run))

	_, err := store.Get(consts.KeyAPIToken)
	assert.ErrorIs(t, err, errdefs.ErrCredentialNotFound)

	require.NoError(t, store.Set(consts.KeyAPIToken, "s3cret"))
	v, err := store.Get(consts.KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	assert.Equal(t, []string{"security", "-i"}, sec.calls[1])
	for _, call := range sec.calls {
		assert.NotContains(t, call, "s3cret")
	}
	assert.Equal(t, `add-generic-password -U -s "`+consts.DefaultKeychainService+`" -a "api_token" -w "s3cret"`+"\n", sec.stdin[0])
}

func TestKeychainStoreQuotesSecret(t *testing.T) {
	sec := &fakeSecurity{items: map[string]string{}}
	store := NewKeychainStore("svc", RunnerOption(sec.run))

	secret := `a "quoted" \ token with spaces`
	require.NoError(t, store.Set(consts.KeyAPIToken, secret))
	assert.Equal(t, secret, sec.items["svc/"+consts.KeyAPIToken])

	assert.ErrorIs(t, store.Set(consts.KeyAPIToken, "two\nlines"), errdefs.ErrInvalidArgument)
}

func TestKeychainStoreWriteNotApplied(t *testing.T) {
	// interactive mode exits 0 even when the item was not written
	store := NewKeychainStore("svc", RunnerOption(func(_ context.Context, _ []byte, _ string, args ...string) ([]byte, error) {
		if args[0] == "-i" {
			return nil, nil
		}
		return nil, exitError(exitItemNotFound)
	}))
	assert.Error(t, store.Set(consts.KeyAPIToken, "s3cret"))
}

func TestKeychainStoreOtherError(t *testing.T) {
	store := NewKeychainStore("svc", RunnerOption(func(context.Context, []byte, string, ...string) ([]byte, error) {
		return nil, exitError(1)
	}))
	_, err := store.Get(consts.KeyZoneID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errdefs.ErrCredentialNotFound)
}

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/home/u/.config/talpa/credentials.yaml")

	_, err := store.Get(consts.KeyAccountID)
	assert.ErrorIs(t, err, errdefs.ErrCredentialNotFound)

	require.NoError(t, Save(store, sample))
	info, err := fs.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	got, err := Load(NewFileStore(fs, store.Path()))
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	require.NoError(t, store.Set(consts.KeyAPIToken, "rotated"))
	v, err := store.Get(consts.KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "rotated", v)
	v, err = store.Get(consts.KeyZoneID)
	require.NoError(t, err)
	assert.Equal(t, "zone1", v)
}

func TestFileStoreCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.yaml", []byte("- a\n- b\n"), 0600))
	_, err := NewFileStore(fs, "/c.yaml").Get(consts.KeyZoneID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errdefs.ErrCredentialNotFound)
}

func TestEnvStore(t *testing.T) {
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acc1")
	t.Setenv("CLOUDFLARE_ZONE_ID", "zone1")
	t.Setenv("CLOUDFLARE_TUNNEL_ID", sample.TunnelID)
	t.Setenv("CLOUDFLARE_API_TOKEN", "tok")

	store := NewEnvStore()
	got, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	assert.ErrorIs(t, store.Set(consts.KeyZoneID, "x"), errdefs.ErrReadOnlyStore)
}

func TestLoadReportsAllMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/c.yaml")
	require.NoError(t, store.Set(consts.KeyAccountID, "acc1"))

	_, err := Load(store)
	assert.ErrorIs(t, err, errdefs.ErrCredentialNotFound)
	assert.Contains(t, err.Error(), "zone_id, tunnel_id, api_token")
	assert.Contains(t, err.Error(), "talpa setup")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sample))

	bad := *sample
	bad.TunnelID = "my-tunnel"
	assert.ErrorIs(t, Validate(&bad), errdefs.ErrInvalidArgument)

	bad = *sample
	bad.APIToken = " "
	assert.ErrorIs(t, Validate(&bad), errdefs.ErrInvalidArgument)
}
