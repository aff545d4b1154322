// Package miscutil provides an "Island of Misfit Toys", but for helper functions
package miscutil

import (
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/pachyderm/csi/src/internal/errors"
)

// WithPipe calls rcb with a reader and wcb with a writer, concurrently.  An error on either
// side closes the pipe so that the other side does not block forever; the first error is
// returned.
func WithPipe(wcb func(w io.Writer) error, rcb func(r io.Reader) error) error {
	pr, pw := io.Pipe()
	eg := errgroup.Group{}
	eg.Go(func() error {
		if err := wcb(pw); err != nil {
			pw.CloseWithError(err)
			return err
		}
		return errors.EnsureStack(pw.Close())
	})
	eg.Go(func() error {
		if err := rcb(pr); err != nil {
			pr.CloseWithError(err)
			return err
		}
		return errors.EnsureStack(pr.Close())
	})
	return errors.EnsureStack(eg.Wait())
}
