package pipeline

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// softwareEncode wraps r so its bytes come out zstd-compressed,
// without shelling out to an external zstd binary. It is only reached
// when an endpoint's capability probe found no zstd binary but the
// caller still asked for compression: missing optional tools should
// downgrade the pipeline, not silently drop a feature the operator
// explicitly requested.
func softwareEncode(level zstd.EncoderLevel) func(io.Reader) io.Reader {
	return func(r io.Reader) io.Reader {
		pr, pw := io.Pipe()
		go func() {
			enc, err := zstd.NewWriter(pw, zstd.WithEncoderLevel(level))
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			_, err = io.Copy(enc, r)
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
			pw.CloseWithError(err)
		}()
		return pr
	}
}

// softwareDecode is softwareEncode's inverse, used when a destination
// (or, in pull-push, an intermediate) endpoint has no zstd binary to
// decode a stream a peer compressed.
func softwareDecode() func(io.Reader) io.Reader {
	return func(r io.Reader) io.Reader {
		pr, pw := io.Pipe()
		go func() {
			dec, err := zstd.NewReader(r)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			defer dec.Close()
			_, err = io.Copy(pw, dec)
			pw.CloseWithError(err)
		}()
		return pr
	}
}
