package container

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phicore/phistore/pkg/backend"
	"github.com/phicore/phistore/pkg/labeled"
)

// Mode is a container access mode, following the conventions of open(2)-style
// mode strings.
type Mode string

const (
	ModeRead       Mode = "r"  // read-only, must exist
	ModeReadWrite  Mode = "r+" // read-write, must exist
	ModeWrite      Mode = "w"  // create, fail if it exists unless overwriting
	ModeWriteRead  Mode = "w+" // create for read-write
	ModeAppend     Mode = "a"  // read-write, must exist
	ModeAppendRead Mode = "a+" // read-write, must exist
)

// FormatRevision is the container format revision written to the root
// rev_fileformat attribute at creation.
const FormatRevision = 2

// FormatAttr is the root attribute carrying the format revision.
const FormatAttr = "rev_fileformat"

// dateToken in a container path is substituted once, at session
// construction, with the current local time.
const dateToken = "{date}"

// engineMarker is the file inside a container recording which backend
// created it. The two engines are API-interchangeable but not
// byte-interchangeable, so a container is bound to its creating engine.
const engineMarker = "BACKEND"

// Top-level groups created when a container is initialized.
var topLevelGroups = []string{"/data", "/scales", "/diag"}

// LazyAdapter wraps a stored array as a lazily loaded chunked view. It is
// injected into the session so chunked reads stay an optional capability.
type LazyAdapter func(dtype labeled.DType, shape, chunks []int, load labeled.BlockLoader) (labeled.Values, error)

// defaultLazyAdapter backs chunked reads with labeled.LazyBlock.
func defaultLazyAdapter(dtype labeled.DType, shape, chunks []int, load labeled.BlockLoader) (labeled.Values, error) {
	return labeled.NewLazyBlock(dtype, shape, chunks, load)
}

// Session owns one on-disk container. Store handles are opened per
// operation and closed before the operation returns; the one exception is a
// lazy chunked read, whose handle stays open on the session until Close.
type Session struct {
	path        string
	mode        Mode
	backendName string
	force       bool
	log         *slog.Logger
	lazy        LazyAdapter

	// handles kept open by lazy chunked reads, released by Close.
	handles []backend.Store
}

// Option configures a Session.
type Option func(*Session)

// WithBackend sets the default backend for the session's operations.
func WithBackend(name string) Option {
	return func(s *Session) { s.backendName = name }
}

// WithOverwrite allows a write mode to replace an existing container.
func WithOverwrite() Option {
	return func(s *Session) { s.force = true }
}

// WithLogger sets the diagnostic sink for warnings.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithLazyAdapter replaces the adapter backing chunked reads. Passing nil
// disables chunked reads.
func WithLazyAdapter(adapter LazyAdapter) Option {
	return func(s *Session) { s.lazy = adapter }
}

// NewSession opens a session on the container at the given path. A {date}
// token in the path is substituted with the current local timestamp. Write
// modes initialize the fixed container layout before returning.
func NewSession(containerPath string, mode Mode, opts ...Option) (*Session, error) {
	s := &Session{
		path:        strings.ReplaceAll(containerPath, dateToken, time.Now().Format("2006-01-02-150405")),
		mode:        mode,
		backendName: backend.Default,
		log:         slog.Default(),
		lazy:        defaultLazyAdapter,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	_, err := os.Stat(s.path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking container path: %w", err)
	}

	switch mode {
	case ModeRead, ModeReadWrite, ModeAppend, ModeAppendRead:
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, s.path)
		}
		// Bind the session to the engine that created the container unless
		// the caller picked one explicitly.
		if s.backendName == backend.Default {
			if engine, err := readEngineMarker(s.path); err == nil {
				s.backendName = engine
			}
		}
		if rev, err := s.formatRevision(); err != nil {
			return nil, fmt.Errorf("checking container format: %w", err)
		} else if rev != FormatRevision {
			s.log.Warn("container has an unexpected format revision",
				"path", s.path, "revision", rev, "expected", FormatRevision)
		}
	case ModeWrite, ModeWriteRead:
		if exists && !s.force {
			return nil, fmt.Errorf("%w: %s", ErrExistingFile, s.path)
		}
		if err := s.initLayout(exists); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// initLayout creates the fixed top-level structure of a fresh container,
// removing any previous container first when overwriting.
func (s *Session) initLayout(exists bool) error {
	if exists {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("removing existing container: %w", err)
		}
	}
	if err := os.MkdirAll(s.path, 0o755); err != nil {
		return fmt.Errorf("creating container directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.path, engineMarker), []byte(s.backendName+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing engine marker: %w", err)
	}
	st, err := backend.Open(s.backendName, s.path, false)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, group := range topLevelGroups {
		if err := st.CreateGroup(group); err != nil {
			return err
		}
	}
	return st.SetAttr("/", FormatAttr, int64(FormatRevision))
}

// Path returns the container path with any date token substituted.
func (s *Session) Path() string { return s.path }

// Mode returns the access mode the session was constructed with.
func (s *Session) Mode() Mode { return s.mode }

// Open opens a store handle on the container. An empty mode falls back to
// the session mode, with write modes downgraded to append since the
// container is already initialized; requesting a write mode explicitly fails
// with ErrWriteModeUnsupported. An empty backend name selects the session
// default. The caller owns the returned handle and must close it.
func (s *Session) Open(mode Mode, backendName string) (backend.Store, error) {
	if mode == "" {
		if s.mode == ModeWrite || s.mode == ModeWriteRead {
			mode = ModeAppend
		} else {
			mode = s.mode
		}
	}
	if !validMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if mode == ModeWrite || mode == ModeWriteRead {
		return nil, fmt.Errorf("%w: %s", ErrWriteModeUnsupported, s.path)
	}
	if backendName == "" {
		backendName = s.backendName
	}
	if engine, err := readEngineMarker(s.path); err == nil && engine != backendName {
		return nil, fmt.Errorf("container %s was created with backend %q, cannot open it with %q",
			s.path, engine, backendName)
	}
	return backend.Open(backendName, s.path, mode == ModeRead)
}

// formatRevision reads the container's rev_fileformat root attribute.
func (s *Session) formatRevision() (int64, error) {
	var rev int64
	err := s.withStore(ModeRead, "", func(st backend.Store) error {
		value, err := st.Attr("/", FormatAttr)
		if err != nil {
			return err
		}
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("root attribute %s has type %T", FormatAttr, value)
		}
		rev = v
		return nil
	})
	return rev, err
}

// readEngineMarker returns the backend name recorded in a container.
func readEngineMarker(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, engineMarker))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// withStore runs fn with a store handle that is closed on every exit path.
func (s *Session) withStore(mode Mode, backendName string, fn func(backend.Store) error) (err error) {
	st, err := s.Open(mode, backendName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(st)
}

// Close releases the handles kept open by lazy chunked reads. Sessions
// without outstanding lazy reads need not be closed.
func (s *Session) Close() error {
	var first error
	for _, h := range s.handles {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.handles = nil
	return first
}

// CreateGroup creates a group under location (the root when empty).
func (s *Session) CreateGroup(name, location string) error {
	if location == "" {
		location = "/"
	}
	target := backend.CleanPath(path.Join(location, name))
	return s.withStore(ModeAppend, "", func(st backend.Store) error {
		return st.CreateGroup(target)
	})
}

// WriteAttrs sets attributes on the node at location (the root when empty).
// Keys are written in sorted order; the underlying attribute store does not
// preserve write order on enumeration.
func (s *Session) WriteAttrs(location string, attrs map[string]interface{}) error {
	if location == "" {
		location = "/"
	}
	target := backend.CleanPath(location)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return s.withStore(ModeAppend, "", func(st backend.Store) error {
		for _, k := range keys {
			if err := st.SetAttr(target, k, attrs[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadAttrs returns all attributes of the node at location (the root when
// empty) as a map.
func (s *Session) ReadAttrs(location string) (map[string]interface{}, error) {
	if location == "" {
		location = "/"
	}
	target := backend.CleanPath(location)
	out := map[string]interface{}{}
	err := s.withStore(ModeRead, "", func(st backend.Store) error {
		entries, err := st.Attrs(target)
		if err != nil {
			return err
		}
		for _, e := range entries {
			out[e.Key] = e.Value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validMode(mode Mode) bool {
	switch mode {
	case ModeRead, ModeReadWrite, ModeWrite, ModeWriteRead, ModeAppend, ModeAppendRead:
		return true
	default:
		return false
	}
}
