// Package stream reads incremental text responses from the server, the
// transport behind the AI tutor chat. Chunks are surfaced as they arrive
// without ever splitting a multi-byte character across two callbacks.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

const readChunkSize = 4 * 1024

// Callbacks receive the streamed response. OnDone fires exactly once after
// the last chunk of a successful stream; OnError fires instead of OnDone
// when anything goes wrong, including before the request is sent.
type Callbacks struct {
	OnChunk func(text string)
	OnDone  func()
	OnError func(message string)
}

// Options configures a streaming request.
type Options struct {
	HTTPClient *http.Client
	// Token is the bearer credential. An empty token fails the request
	// locally with a login prompt instead of hitting the server.
	Token string
}

// Request POSTs payload to url and streams the response body through the
// callbacks. The caller's ctx cancels the stream mid-read.
func Request(ctx context.Context, url string, payload any, options Options, callbacks Callbacks) {
	if options.Token == "" {
		callbacks.fail("Please log in to use the AI tutor.")
		return
	}

	client := options.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(payload)
	if err != nil {
		callbacks.fail(fmt.Sprintf("request could not be encoded: %v", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		callbacks.fail(fmt.Sprintf("request could not be built: %v", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+options.Token)

	resp, err := client.Do(req)
	if err != nil {
		callbacks.fail(fmt.Sprintf("request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callbacks.fail(readErrorBody(resp))
		return
	}

	if err := copyChunks(resp.Body, callbacks.OnChunk); err != nil {
		callbacks.fail(fmt.Sprintf("stream interrupted: %v", err))
		return
	}

	if callbacks.OnDone != nil {
		callbacks.OnDone()
	}
}

func (c Callbacks) fail(message string) {
	if c.OnError != nil {
		c.OnError(message)
	}
}

// copyChunks reads body to EOF, emitting each read as text. Bytes that end
// mid-rune are carried into the next read; a final partial rune is emitted
// as-is at EOF rather than dropped.
func copyChunks(body io.Reader, onChunk func(string)) error {
	buf := make([]byte, readChunkSize)
	var carry []byte

	for {
		n, err := body.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			complete, rest := splitTrailingRune(carry)
			if len(complete) > 0 && onChunk != nil {
				onChunk(string(complete))
			}
			carry = append(carry[:0], rest...)
		}
		if err == io.EOF {
			if len(carry) > 0 && onChunk != nil {
				onChunk(string(carry))
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// splitTrailingRune cuts b before an incomplete trailing UTF-8 sequence.
func splitTrailingRune(b []byte) (complete, rest []byte) {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if utf8.Valid(b[len(b)-i:]) {
			return b, nil
		}
		return b[:len(b)-i], b[len(b)-i:]
	}
	return b, nil
}

// readErrorBody turns a non-2xx response into a user-facing message,
// preferring the server's structured detail over the raw body.
func readErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("server returned status %d", resp.StatusCode)
	}

	var detail struct {
		Detail json.RawMessage `json:"detail"`
		Msg    string          `json:"msg"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail.Msg != "" {
			return detail.Msg
		}
		var text string
		if json.Unmarshal(detail.Detail, &text) == nil && text != "" {
			return text
		}
	}
	return string(raw)
}
