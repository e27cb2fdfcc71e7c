package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// maxEventBytes bounds a single data line.
const maxEventBytes = 1 << 20

// readEvents parses "data: <json>" frames from r and hands each event to
// fn until fn returns false or the stream ends. Comment lines and other
// fields are skipped.
func readEvents(r io.Reader, fn func(models.Event) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventBytes)

	for sc.Scan() {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var ev models.Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil {
			return fmt.Errorf("bad event %q: %w", data, err)
		}
		if !fn(ev) {
			return nil
		}
	}
	return sc.Err()
}
