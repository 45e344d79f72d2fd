// Package archive writes the workspace forest as a ZIP file.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/hpungsan/harbor/internal/tree"
)

// DefaultName is the suggested file name for an exported workspace.
const DefaultName = "codeharbor-workspace.zip"

// Result summarizes a written archive.
type Result struct {
	Files   int `json:"files"`
	Folders int `json:"folders"`
}

// Write streams f to w as a ZIP archive. Folders become directory entries,
// including empty ones. Files become entries at their full path; files with
// no content are skipped.
func Write(w io.Writer, f tree.Forest) (Result, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	var res Result
	modified := time.Now()
	err := tree.Walk(f, func(path string, n tree.Node) error {
		switch n := n.(type) {
		case *tree.Folder:
			if _, err := zw.CreateHeader(&zip.FileHeader{
				Name:     path + "/",
				Method:   zip.Store,
				Modified: modified,
			}); err != nil {
				return fmt.Errorf("add folder %s: %w", path, err)
			}
			res.Folders++
		case *tree.File:
			if n.Content == nil {
				return nil
			}
			entry, err := zw.CreateHeader(&zip.FileHeader{
				Name:     path,
				Method:   zip.Deflate,
				Modified: modified,
			})
			if err != nil {
				return fmt.Errorf("add file %s: %w", path, err)
			}
			if _, err := io.WriteString(entry, *n.Content); err != nil {
				return fmt.Errorf("write file %s: %w", path, err)
			}
			res.Files++
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return res, err
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("finish archive: %w", err)
	}
	return res, nil
}

// Entry is one member of an archive.
type Entry struct {
	Path    string `json:"path"`
	Dir     bool   `json:"dir"`
	Size    uint64 `json:"size"`
	Content string `json:"-"`
}

// ErrTooLarge is returned by Read when an entry or the whole archive
// decompresses past its Limits.
var ErrTooLarge = errors.New("archive exceeds uncompressed size limit")

// Limits bounds how much Read decompresses. Header sizes are not trusted;
// the bytes actually produced are counted.
type Limits struct {
	Entry int64 // per file entry
	Total int64 // all file entries together
}

// DefaultLimits is used when Read is given a zero Limits.
var DefaultLimits = Limits{Entry: 5 << 20, Total: 256 << 20}

// Read lists the entries of a ZIP archive in stored order, with file
// contents. It stops with ErrTooLarge once a limit is passed.
func Read(data []byte, lim Limits) ([]Entry, error) {
	if lim.Entry <= 0 {
		lim.Entry = DefaultLimits.Entry
	}
	if lim.Total <= 0 {
		lim.Total = DefaultLimits.Total
	}
	zr, err := openReader(data)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(zr.File))
	var total int64
	for _, zf := range zr.File {
		e := Entry{
			Path: zf.Name,
			Dir:  zf.FileInfo().IsDir(),
			Size: zf.UncompressedSize64,
		}
		if !e.Dir {
			budget := min(lim.Entry, lim.Total-total)
			body, err := readEntry(zf, budget)
			if err != nil {
				return nil, err
			}
			total += int64(len(body))
			e.Content = string(body)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// readEntry decompresses zf, failing with ErrTooLarge past limit bytes.
func readEntry(zf *zip.File, limit int64) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zf.Name, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s: %w", zf.Name, ErrTooLarge)
	}
	return body, nil
}

func openReader(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})
	return zr, nil
}

// Paths returns the entry names of a ZIP archive in stored order. Only the
// central directory is read; nothing is decompressed.
func Paths(data []byte) ([]string, error) {
	zr, err := openReader(data)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(zr.File))
	for i, zf := range zr.File {
		paths[i] = zf.Name
	}
	return paths, nil
}

// Forest rebuilds a forest from archive entries. Directory entries become
// folders even when empty. Path segments that are empty, "." or ".." are
// dropped. Nodes get fresh ids.
func Forest(entries []Entry) tree.Forest {
	root := &tree.Folder{Children: tree.Forest{}}
	folders := make(map[string]*tree.Folder)

	folderFor := func(parts []string) *tree.Folder {
		parent := root
		prefix := ""
		for _, part := range parts {
			prefix += "/" + part
			folder, ok := folders[prefix]
			if !ok {
				folder = tree.NewFolder(part)
				folders[prefix] = folder
				parent.Children = append(parent.Children, folder)
			}
			parent = folder
		}
		return parent
	}

	for _, e := range entries {
		parts := cleanSegments(e.Path)
		if len(parts) == 0 {
			continue
		}
		if e.Dir {
			folderFor(parts)
			continue
		}
		parent := folderFor(parts[:len(parts)-1])
		parent.Children = append(parent.Children, tree.NewFile(parts[len(parts)-1], e.Content))
	}
	return root.Children
}

func cleanSegments(p string) []string {
	var out []string
	for _, part := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		out = append(out, part)
	}
	return out
}
