package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/logger"
	dom "retrosignal/internal/services/signals/domain"
)

const (
	bundlePrefix = "signals-"
	bundleExt    = ".json"
	noSession    = "nosession"

	// UTC flush time; lexical order is chronological
	stampLayout = "20060102T150405.000000000Z"
)

var (
	now = time.Now

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// Bundle is the file backend: one JSON array per session per flush
type Bundle struct {
	dir string
	log *logger.Logger

	// serializes name allocation within the process
	mu sync.Mutex
}

// NewBundle constructs the file backend rooted at dir. The directory is created on first write
func NewBundle(dir string) *Bundle {
	if strings.TrimSpace(dir) == "" {
		dir = ".signals"
	}
	return &Bundle{dir: filepath.Clean(dir), log: logger.Named("signals-bundle")}
}

var _ dom.BundleStorage = (*Bundle)(nil)

// Dir implements dom.BundleStorage
func (b *Bundle) Dir() string { return b.dir }

// SessionToken is the file name segment for a session id
func SessionToken(sessionID string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(sessionID), "_"), "._")
	if s == "" {
		return noSession
	}
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// Write implements dom.Writer. The batch is grouped by session, one file per group
func (b *Bundle) Write(ctx context.Context, xs []dom.Record) error {
	if len(xs) == 0 {
		return nil
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "create bundle dir %s", b.dir)
	}

	var order []string
	groups := map[string][]dom.Record{}
	for _, r := range xs {
		tok := SessionToken(r.SessionID)
		if _, ok := groups[tok]; !ok {
			order = append(order, tok)
		}
		groups[tok] = append(groups[tok], r)
	}

	stamp := now().UTC().Format(stampLayout)
	for _, tok := range order {
		if err := ctx.Err(); err != nil {
			return perr.FromContext(err, "bundle write")
		}
		if err := b.writeOne(tok, stamp, groups[tok]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bundle) writeOne(tok, stamp string, xs []dom.Record) error {
	data, err := json.MarshalIndent(xs, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode bundle")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.freeName(tok, stamp)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "rename %s", path)
	}
	return nil
}

// freeName returns the first unused bundle path for tok at stamp
func (b *Bundle) freeName(tok, stamp string) string {
	base := bundlePrefix + tok + "-" + stamp
	path := filepath.Join(b.dir, base+bundleExt)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path
		}
		path = filepath.Join(b.dir, fmt.Sprintf("%s-%d%s", base, i, bundleExt))
	}
}

// ListAll reads every bundle in name order. Unreadable or corrupt files are skipped
func (b *Bundle) ListAll(ctx context.Context) ([]dom.Record, error) {
	return b.read(ctx, func(string) bool { return true })
}

// ListBySession implements dom.BundleStorage. Records are not deduplicated.
// File names narrow the read; the session id on each record decides, since
// distinct ids can share a token or a token prefix
func (b *Bundle) ListBySession(ctx context.Context, sessionID string) ([]dom.Record, error) {
	prefix := bundlePrefix + SessionToken(sessionID) + "-"
	all, err := b.read(ctx, func(name string) bool { return strings.HasPrefix(name, prefix) })
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListByDirective implements dom.DirectiveReader, most recent first
func (b *Bundle) ListByDirective(ctx context.Context, directiveID string) ([]dom.Record, error) {
	all, err := b.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.DirectiveID == directiveID {
			out = append(out, r)
		}
	}
	SortRecent(out)
	return out, nil
}

func (b *Bundle) read(ctx context.Context, keep func(name string) bool) ([]dom.Record, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "list %s", b.dir)
	}

	var out []dom.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, bundlePrefix) || filepath.Ext(name) != bundleExt || !keep(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, perr.FromContext(err, "bundle read")
		}
		data, err := os.ReadFile(filepath.Join(b.dir, name))
		if err != nil {
			b.log.Warn().Err(err).Str("file", name).Msg("skip unreadable bundle")
			continue
		}
		var xs []dom.Record
		if err := json.Unmarshal(data, &xs); err != nil {
			b.log.Warn().Err(err).Str("file", name).Msg("skip corrupt bundle")
			continue
		}
		out = append(out, xs...)
	}
	return out, nil
}

// SortRecent orders records most recent first, id descending on ties
func SortRecent(xs []dom.Record) {
	sort.SliceStable(xs, func(i, j int) bool {
		if !xs[i].Timestamp.Equal(xs[j].Timestamp) {
			return xs[i].Timestamp.After(xs[j].Timestamp)
		}
		return xs[i].ID > xs[j].ID
	})
}
