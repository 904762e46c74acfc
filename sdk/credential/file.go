package credential

import (
	"github.com/jxo-me/talpa/core/credential"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"sync"
)

const FileCode = "file"

var _ credential.IStore = (*FileStore)(nil)

// FileStore keeps secrets in a YAML map readable only by the owner.
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) String() string {
	return FileCode
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	secrets := map[string]string{}
	if err = yaml.Unmarshal(data, &secrets); err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	return secrets, nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secrets, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := secrets[key]
	if !ok || v == "" {
		return "", errors.Wrapf(errdefs.ErrCredentialNotFound, "%s not in %s", key, s.path)
	}
	return v, nil
}

func (s *FileStore) Set(key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	secrets, err := s.load()
	if err != nil {
		return err
	}
	secrets[key] = secret
	data, err := yaml.Marshal(secrets)
	if err != nil {
		return errors.Wrap(err, "encode credentials")
	}
	if err = s.fs.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(s.path))
	}
	if err = afero.WriteFile(s.fs, s.path, data, 0600); err != nil {
		return errors.Wrapf(err, "write %s", s.path)
	}
	// WriteFile keeps the mode of an existing file
	return s.fs.Chmod(s.path, 0600)
}
