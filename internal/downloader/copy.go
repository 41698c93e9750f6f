package downloader

import "io"

// progressWriter reports the running byte total after every chunk written
// through it.
type progressWriter struct {
	dst    io.Writer
	done   int64
	report func(done int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		w.done += int64(n)
		if w.report != nil {
			w.report(w.done)
		}
	}
	return n, err
}

func copyWithProgress(dst io.Writer, src io.Reader, progress func(done int64)) (int64, error) {
	return io.Copy(&progressWriter{dst: dst, report: progress}, src)
}
