package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/vburojevic/termdbg/internal/transport"
)

// recordingConn copies every byte received from the runtime into a
// transcript file that replay can read back.
type recordingConn struct {
	transport.Conn

	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

func newRecordingConn(conn transport.Conn, path string) (*recordingConn, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	return &recordingConn{Conn: conn, file: f, w: bufio.NewWriter(f)}, nil
}

func (c *recordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.mu.Lock()
		if c.w != nil {
			c.w.Write(p[:n])
		}
		c.mu.Unlock()
	}
	return n, err
}

func (c *recordingConn) Close() error {
	err := c.Conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w != nil {
		c.w.Flush()
		c.file.Close()
		c.w = nil
	}
	return err
}

// splitTranscript cuts a transcript into the chunks a live connection
// would have delivered: whole lines, with a prompt at the start of a line
// split off so it is seen as a prompt before the rest of the line arrives.
func splitTranscript(data []byte, prompts []string) [][]byte {
	byLength := append([]string(nil), prompts...)
	sort.Slice(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	var chunks [][]byte
	for len(data) > 0 {
		end := bytes.IndexByte(data, '\n') + 1
		if end == 0 {
			end = len(data)
		}
		line := data[:end]
		data = data[end:]

		content := bytes.TrimRight(line, "\r\n")
		for _, p := range byLength {
			if p != "" && len(line) > len(p) && bytes.HasPrefix(content, []byte(p)) {
				chunks = append(chunks, line[:len(p)])
				line = line[len(p):]
				break
			}
		}
		chunks = append(chunks, line)
	}
	return chunks
}
