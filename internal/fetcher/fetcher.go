// Package fetcher loads batch input rows from local or remote CSV and XLSX
// files.
package fetcher

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options configures row loading.
type Options struct {
	// HasHeader drops the first row, which names the columns.
	HasHeader bool
	// Sheet selects an XLSX sheet by name; the first sheet by default.
	Sheet string
	// HTTP configures downloads of http(s) sources.
	HTTP HTTPOptions
}

// ReadRows loads every data row of src. src is a local path or an http(s)
// URL; the format is chosen by file extension.
func ReadRows(ctx context.Context, src string, opts Options) ([][]string, error) {
	local := src
	if isURL(src) {
		tmp, err := os.MkdirTemp("", "outreach-rows-*")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create temp dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		local = filepath.Join(tmp, "input"+strings.ToLower(path.Ext(urlPath(src))))
		n, err := NewHTTPFetcher(opts.HTTP).DownloadToFile(ctx, src, local)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: download %s", src)
		}
		zap.L().Debug("fetcher: downloaded input", zap.String("url", src), zap.Int64("bytes", n))
	}

	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(local)); ext {
	case ".csv", ".txt":
		rows, err = ReadCSVFile(ctx, local, CSVOptions{HasHeader: opts.HasHeader, TrimSpace: true})
	case ".xlsx":
		skip := 0
		if opts.HasHeader {
			skip = 1
		}
		rows, err = ReadXLSX(local, XLSXOptions{SheetName: opts.Sheet, SkipRows: skip})
	default:
		return nil, eris.Errorf("fetcher: unsupported input format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("fetcher: loaded rows", zap.String("source", src), zap.Int("rows", len(rows)))
	return rows, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
