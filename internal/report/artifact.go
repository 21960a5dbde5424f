package report

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/temirov/orgmigrate/internal/utils"
	pathutils "github.com/temirov/orgmigrate/internal/utils/path"
)

const (
	// StandardStreamPath routes an artifact through stdin or stdout.
	StandardStreamPath = "-"

	artifactPathMissingMessageConstant = "artifact path must be provided"
	artifactDirectoryPermissions       = 0o755
)

var (
	errArtifactPathMissing = errors.New(artifactPathMissingMessageConstant)
	artifactPathExpander   = pathutils.NewHomeExpander()
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// OpenOutput opens an artifact destination for writing. The dash path writes
// to stdout through a flushing wrapper so partial output stays visible; any
// other path is created along with its parent directories.
func OpenOutput(artifactPath string) (io.WriteCloser, error) {
	if len(artifactPath) == 0 {
		return nil, errArtifactPathMissing
	}
	if artifactPath == StandardStreamPath {
		return nopWriteCloser{Writer: utils.NewFlushingWriter(os.Stdout)}, nil
	}

	expandedPath := artifactPathExpander.Expand(artifactPath)
	parentDirectory := filepath.Dir(expandedPath)
	if parentDirectory != "." {
		if directoryError := os.MkdirAll(parentDirectory, artifactDirectoryPermissions); directoryError != nil {
			return nil, directoryError
		}
	}
	return os.Create(expandedPath)
}

// OpenInput opens an artifact source for reading. The dash path reads stdin.
func OpenInput(artifactPath string) (io.ReadCloser, error) {
	if len(artifactPath) == 0 {
		return nil, errArtifactPathMissing
	}
	if artifactPath == StandardStreamPath {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(artifactPathExpander.Expand(artifactPath))
}
