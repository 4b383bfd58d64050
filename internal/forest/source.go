package forest

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
)

// MaxArtifactSize caps how many bytes are read from a model source.
const MaxArtifactSize = 64 * 1024 * 1024

//go:embed default_model.json
var defaultModel []byte

// Source produces the raw model artifact.
type Source interface {
	// Open returns a reader over the artifact. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// String describes the source for logs and errors.
	String() string
}

// FileSource reads the artifact from a local file.
type FileSource string

// Open implements Source.
func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(string(s)) //nolint:gosec // Model path is operator-provided
}

func (s FileSource) String() string { return "file:" + string(s) }

// HTTPSource fetches the artifact with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Open implements Source.
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s HTTPSource) String() string { return s.URL }

// BytesSource serves an in-memory artifact.
type BytesSource struct {
	Name string
	Data []byte
}

// Open implements Source.
func (s BytesSource) Open(_ context.Context) (io.ReadCloser, error) {
	if len(s.Data) == 0 {
		return nil, errEmptyArtifact
	}
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

func (s BytesSource) String() string { return s.Name }

// EmbeddedSource returns the sample model compiled into the binary.
func EmbeddedSource() Source {
	return BytesSource{Name: "embedded", Data: defaultModel}
}
