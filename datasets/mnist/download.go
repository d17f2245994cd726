package mnist

import "context"
import "crypto/sha256"
import "fmt"
import "io"
import "net/http"
import "os"
import "path/filepath"

import "github.com/pkg/errors"
import "github.com/rs/zerolog"

// DefaultBaseURL is the canonical MNIST mirror.
const DefaultBaseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// Downloader fetches the MNIST files over HTTP.
type Downloader struct {
	// BaseURL is the directory URL the four files live under.
	// Empty means DefaultBaseURL.
	BaseURL string

	// Client is the HTTP client to use. Nil means http.DefaultClient.
	Client *http.Client

	// Logger receives per-file progress. The zero logger is silent.
	Logger zerolog.Logger
}

// Download fetches the files missing from dir and digest checks every file,
// redownloading on a mismatch. Files land under their canonical names.
func (d *Downloader) Download(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	for name, digest := range files {
		path := filepath.Join(dir, name)
		if err := verifyFile(path, digest); err == nil {
			d.Logger.Debug().Str("file", name).Msg("already downloaded")
			continue
		} else if !os.IsNotExist(errors.Cause(err)) {
			d.Logger.Warn().Str("file", name).Err(err).Msg("redownloading")
		}
		if err := d.fetch(ctx, name, path); err != nil {
			return err
		}
		if err := verifyFile(path, digest); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) fetch(ctx context.Context, name, path string) error {
	base := d.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	url := base + name
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	d.Logger.Info().Str("url", url).Msg("downloading")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", url)
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "fetching %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %s: %s", url, resp.Status)
	}

	// Download next to the target and rename, so a torn download never
	// passes for a data file.
	tmp, err := os.CreateTemp(filepath.Dir(path), name+".part-*")
	if err != nil {
		return errors.Wrap(err, "creating download temp file")
	}
	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "downloading %s", url)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "placing %s", path)
	}
	d.Logger.Info().Str("file", name).Int64("bytes", written).Msg("downloaded")
	return nil
}

// verifyFile compares the sha256 of the file against the expected digest.
func verifyFile(path, digest string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrapf(err, "hashing %s", path)
	}
	if sum := fmt.Sprintf("%x", h.Sum(nil)); sum != digest {
		return errors.Errorf("digest of %s is %s, want %s", path, sum, digest)
	}
	return nil
}
