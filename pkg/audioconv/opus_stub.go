//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

func decodeOggOpus(io.Reader) (decoded, error) {
	return decoded{}, errors.New("ogg/opus support not compiled in (build with -tags opus)")
}
