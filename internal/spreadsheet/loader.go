// Package spreadsheet flattens a local ingredient spreadsheet into plain text
// that can be pasted verbatim into a model prompt.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/ingredia/internal/cache"
)

const (
	DefaultMaxFileBytes = 10 << 20
	DefaultMaxTextChars = 100_000
	defaultCacheSize    = 8
)

// truncationMarker is appended when the rendered text exceeds MaxTextChars.
const truncationMarker = "... [spreadsheet truncated]"

// Sheet is the text rendering of a spreadsheet file.
type Sheet struct {
	Path      string
	Hash      string
	Text      string
	Rows      int
	Truncated bool
}

type Options struct {
	MaxFileBytes int64
	MaxTextChars int
	CacheSize    int
}

// Loader reads spreadsheets and memoizes their text by file content.
type Loader struct {
	memo         *cache.Memo[*Sheet]
	maxFileBytes int64
	maxTextChars int

	// parse is swapped in tests to count parses.
	parse func(ext string, data []byte) ([]table, error)
}

func NewLoader(opts Options) (*Loader, error) {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = DefaultMaxTextChars
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	memo, err := cache.NewMemo[*Sheet](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Loader{
		memo:         memo,
		maxFileBytes: opts.MaxFileBytes,
		maxTextChars: opts.MaxTextChars,
		parse:        parseTables,
	}, nil
}

// Load returns the text rendering of the spreadsheet at path. A missing file
// yields an error wrapping ErrFileNotFound. Repeated loads of unchanged
// content return the cached rendering without parsing again.
func (l *Loader) Load(ctx context.Context, path string) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExt(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat spreadsheet: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	if info.Size() > l.maxFileBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), l.maxFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	key := cache.Key(data)
	sheet, _, err := l.memo.Get(ctx, ext+":"+key, func(context.Context) (*Sheet, error) {
		tables, err := l.parse(ext, data)
		if err != nil {
			return nil, err
		}
		text, rows, truncated := render(tables, l.maxTextChars)
		return &Sheet{Hash: key, Text: text, Rows: rows, Truncated: truncated}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet %s: %w", path, err)
	}

	out := *sheet
	out.Path = path
	return &out, nil
}

func supportedExt(ext string) bool {
	switch ext {
	case ".xlsx", ".xlsm", ".csv":
		return true
	default:
		return false
	}
}
