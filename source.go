package tex2pdf

import (
	"fmt"
	"io"
	"strings"
)

// open returns the compiler input for the given 1-based pass. Inline text
// yields a fresh reader every time; a stream may only be read on pass 1.
func (d Document) open(pass int) (io.Reader, error) {
	if d.Reader == nil {
		return strings.NewReader(d.Text), nil
	}
	if pass > 1 {
		return nil, fmt.Errorf("%w: pass %d", ErrStreamReplay, pass)
	}
	return d.Reader, nil
}
