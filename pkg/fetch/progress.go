package fetch

import "io"

// DownloadProgress reports bytes received for one payload file.
type DownloadProgress struct {
	FileName      string
	BytesReceived int64
	TotalBytes    int64 // -1 when the server did not send a length
}

// progressReader reports cumulative bytes after every read.
type progressReader struct {
	r        io.Reader
	name     string
	total    int64
	received int64
	report   func(DownloadProgress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.received += int64(n)
		p.report(DownloadProgress{FileName: p.name, BytesReceived: p.received, TotalBytes: p.total})
	}
	return n, err
}
