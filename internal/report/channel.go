package report

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Exported constants.
const (
	// MaxFrameSize bounds a single native-messaging frame.
	MaxFrameSize = 64 << 20
)

// Exported variables.
var (
	ErrFrameTooLarge    = errors.New("native message frame too large")
	ErrUnexpectedStatus = errors.New("collector returned unexpected status")
)

// Channel delivers messages to the collector.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// NativeChannel writes messages using native-messaging framing: a 4-byte
// little-endian length followed by the JSON payload.
type NativeChannel struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNativeChannel creates a channel writing frames to w.
func NewNativeChannel(w io.Writer) *NativeChannel {
	return &NativeChannel{w: w}
}

// Send encodes msg and writes it as one frame.
func (c *NativeChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return WriteFrame(c.w, payload)
}

// HTTPChannel posts messages as JSON to a collector URL.
type HTTPChannel struct {
	url    string
	client *http.Client
}

// NewHTTPChannel creates a channel posting to url. A nil client uses http.DefaultClient.
func NewHTTPChannel(url string, client *http.Client) *HTTPChannel {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPChannel{url: url, client: client}
}

// Send posts msg. Any non-2xx response is an error.
func (c *HTTPChannel) Send(ctx context.Context, msg Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.url, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	return nil
}

// Encode marshals msg without HTML escaping so markup in print content is
// carried verbatim.
func Encode(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Kind(), err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteFrame writes one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(payload))) //nolint:gosec // Bounded by MaxFrameSize

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}

	return nil
}

// ReadFrame reads one length-prefixed frame. It returns io.EOF when r ends
// cleanly between frames and io.ErrUnexpectedEOF when a frame is cut short.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return payload, nil
}

// ReadNative reads and decodes one framed message.
func ReadNative(r io.Reader) (Message, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Message{}, err
	}

	return Decode(payload)
}

// Decode unmarshals a JSON payload into a message.
func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	return msg, nil
}
