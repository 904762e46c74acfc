package credential

import (
	"bytes"
	"context"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"os/exec"
	"strings"
	"time"
)

const (
	KeychainCode = "keychain"

	securityBin = "security"
	// security(1) exits with errSecItemNotFound
	exitItemNotFound = 44
)

var _ credential.IStore = (*KeychainStore)(nil)

// Runner runs a command, feeding it stdin when non-nil, and returns its
// standard output.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, &commandError{err: err, stderr: strings.TrimSpace(stderr.String())}
	}
	return out, err
}

type commandError struct {
	err    error
	stderr string
}

func (e *commandError) Error() string {
	return e.err.Error() + ": " + e.stderr
}

func (e *commandError) Unwrap() error {
	return e.err
}

// KeychainStore keeps secrets as generic passwords in the macOS login
// keychain, one item per key under a shared service name.
type KeychainStore struct {
	service string
	run     Runner
	timeout time.Duration
}

type KeychainOption func(s *KeychainStore)

// RunnerOption replaces the command runner. Tests use it to fake security(1).
func RunnerOption(r Runner) KeychainOption {
	return func(s *KeychainStore) {
		s.run = r
	}
}

func NewKeychainStore(service string, opts ...KeychainOption) *KeychainStore {
	if service == "" {
		service = consts.DefaultKeychainService
	}
	s := &KeychainStore{service: service, run: execRunner, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KeychainStore) String() string {
	return KeychainCode
}

func (s *KeychainStore) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	out, err := s.run(ctx, nil, securityBin, "find-generic-password", "-s", s.service, "-a", key, "-w")
	if err != nil {
		if isItemNotFound(err) {
			return "", errors.Wrapf(errdefs.ErrCredentialNotFound, "%s not in keychain service %s", key, s.service)
		}
		return "", errors.Wrapf(err, "read %s from keychain", key)
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}

// Set adds the item or updates it in place (-U). The command goes through
// `security -i` on stdin so the secret never shows up in the process list.
// Interactive mode does not report failures in its exit status, hence the
// read back.
func (s *KeychainStore) Set(key, secret string) error {
	if strings.ContainsAny(secret, "\r\n") {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "%s contains a line break", key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	line := strings.Join([]string{"add-generic-password", "-U",
		"-s", quoteArg(s.service), "-a", quoteArg(key), "-w", quoteArg(secret)}, " ") + "\n"
	if _, err := s.run(ctx, []byte(line), securityBin, "-i"); err != nil {
		return errors.Wrapf(err, "write %s to keychain", key)
	}
	stored, err := s.Get(key)
	if err != nil {
		return errors.Wrapf(err, "write %s to keychain", key)
	}
	if stored != secret {
		return errors.Errorf("write %s to keychain: stored value does not match", key)
	}
	return nil
}

// quoteArg quotes one word for the security(1) interactive parser.
func quoteArg(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

func isItemNotFound(err error) bool {
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitItemNotFound {
		return true
	}
	return strings.Contains(err.Error(), "could not be found")
}
