package operation

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ironsheep/arion/internal/apperr"
	"github.com/ironsheep/arion/internal/meta"
)

// Copy copies the source file byte for byte and then writes the source
// metadata onto the copy, replacing the blocks the bundle carries. Copies of
// files that are not JPEG keep their bytes untouched.
type Copy struct {
	base

	outputPath string
}

// Setup reads output_url, which is required.
func (c *Copy) Setup(p Params) error {
	url, ok := p.String("output_url")
	if !ok || LocalPath(url) == "" {
		return missing("copy setup", "output_url")
	}
	c.outputPath = LocalPath(url)
	return nil
}

// Run copies srcPath to the output path. A bundle that is nil or empty
// leaves the copy untouched.
func (c *Copy) Run(srcPath string, bundle *meta.Bundle) bool {
	return c.execute(func() error {
		if srcPath == "" {
			return apperr.New(apperr.KindIO, "copy", apperr.ErrNoSource)
		}
		if err := copyFile(srcPath, c.outputPath); err != nil {
			return err
		}
		if bundle.Empty() {
			return nil
		}
		err := meta.WriteFile(c.outputPath, bundle)
		if errors.Is(err, apperr.ErrUnsupportedContainer) {
			c.log.Debug().Str("op", string(c.kind)).Str("output", c.outputPath).Msg("metadata skipped for non-JPEG copy")
			return nil
		}
		return err
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return apperr.New(apperr.KindIO, "copy", errors.Wrap(err, "failed to open source"))
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return apperr.New(apperr.KindIO, "copy", errors.Wrap(err, "failed to create output"))
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return apperr.New(apperr.KindIO, "copy", errors.Wrap(err, "failed to copy"))
	}
	if err := out.Close(); err != nil {
		return apperr.New(apperr.KindIO, "copy", errors.Wrap(err, "failed to write output"))
	}
	return nil
}

// CopyResult is the result record of copy.
type CopyResult struct {
	Type      Kind    `json:"type"`
	Result    bool    `json:"result"`
	OutputURL string  `json:"output_url"`
	Time      float64 `json:"time"`
}

func (c *Copy) Result() any {
	if c.status != StatusSuccess {
		f := c.failure()
		f.OutputURL = FileURL(c.outputPath)
		return f
	}
	return CopyResult{
		Type:      c.kind,
		Result:    true,
		OutputURL: FileURL(c.outputPath),
		Time:      c.elapsed.Seconds(),
	}
}
