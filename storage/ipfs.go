package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// IPFSBackend implements an object store in the mutable file system (MFS) of an IPFS node.
// Objects are files under a base directory.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS object store connected to the node API at host:port.
func NewIPFSBackend(host, port, baseDir string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	baseDir = "/" + strings.Trim(baseDir, "/")

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s?timeout=%s", apiURL, baseDir, timeout),
	}, nil
}

// Load reads an object from MFS.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Load(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}
	start := time.Now()
	filePath := path.Join(b.baseDir, name)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, filePath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			b.log.Debug("Object not found in IPFS",
				slog.String("path", filePath),
				slog.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, name)
		}

		b.log.Error("Failed to read object from IPFS",
			slog.String("path", filePath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read object from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Loaded object from IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store writes an object into MFS, creating parent directories and replacing previous content.
func (b *IPFSBackend) Store(ctx context.Context, name string, data []byte) error {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return err
	}
	filePath := path.Join(b.baseDir, name)

	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, filePath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write object to IPFS: %w", err)
	}

	b.log.Debug("Stored object in IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}
