package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	entrySuffix = ".kv"
	tempSuffix  = ".tmp"
)

// Filesystem keeps one file per key under a root directory. Every path is
// resolved with openat2 RESOLVE_IN_ROOT so nothing escapes the root.
type Filesystem struct {
	root string
	dfd  int
}

func NewFilesystem(root string) (*Filesystem, error) {
	dfd, err := unix.Open(root, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage directory %s: %w", root, err)
	}
	return &Filesystem{
		root: root,
		dfd:  dfd,
	}, nil
}

// Keys are arbitrary strings, so they are stored base64url encoded.
func entryName(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key)) + entrySuffix
}

func (f *Filesystem) Get(_ context.Context, key string) (string, bool, error) {
	file, err := f.openFile(entryName(key), os.O_RDONLY, 0)
	if errors.Is(err, unix.ENOENT) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes to a temporary file and renames it over the entry, so readers
// never see a partial value.
func (f *Filesystem) Set(_ context.Context, key, value string) error {
	name := entryName(key)
	tmp := name + "." + uuid.NewString() + tempSuffix
	file, err := f.openFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}

	written, err := file.WriteString(value)
	if err == nil && written != len(value) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = unix.Unlinkat(f.dfd, tmp, 0)
		return err
	}

	if err := unix.Renameat(f.dfd, tmp, f.dfd, name); err != nil {
		_ = unix.Unlinkat(f.dfd, tmp, 0)
		return err
	}
	return nil
}

func (f *Filesystem) Remove(_ context.Context, key string) error {
	err := unix.Unlinkat(f.dfd, entryName(key), 0)
	if err != nil && !errors.Is(err, unix.ENOENT) {
		return err
	}
	return nil
}

func (f *Filesystem) Clear(ctx context.Context) error {
	entries, err := f.readDir()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, entrySuffix) || strings.HasSuffix(name, tempSuffix)) {
			continue
		}
		if err := unix.Unlinkat(f.dfd, name, 0); err != nil && !errors.Is(err, unix.ENOENT) {
			return err
		}
	}
	return nil
}

func (f *Filesystem) Close() error {
	return unix.Close(f.dfd)
}

func (f *Filesystem) readDir() ([]fs.DirEntry, error) {
	dir, err := f.openFile(".", unix.O_DIRECTORY|unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	return dir.ReadDir(0)
}

func (f *Filesystem) openFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	// openat2 RESOLVE_IN_ROOT - so symlinks still work
	for {
		how := unix.OpenHow{
			Flags:   uint64(flag) | unix.O_CLOEXEC,
			Mode:    uint64(perm),
			Resolve: unix.RESOLVE_IN_ROOT,
		}
		fd, err := unix.Openat2(f.dfd, name, &how)
		if err != nil {
			// need to check for EINTR - Go issues 11180, 39237
			// also EAGAIN in case of unsafe race
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return nil, err
		}

		return os.NewFile(uintptr(fd), name), nil
	}
}
