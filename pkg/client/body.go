package client

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised unless the caller sets Accept-Encoding.
// Setting it disables the transport's own gzip handling, so both codings are
// decoded in readBody.
const acceptEncoding = "gzip, br"

// encodeBody serializes a request body. Strings and byte slices are sent
// raw, anything else as JSON.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case json.RawMessage:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return data, "application/json", nil
	}
}

// readBody reads and decompresses a response body. An empty body is
// returned as is whatever Content-Encoding claims.
func readBody(resp *http.Response) ([]byte, error) {
	raw := bufio.NewReader(resp.Body)
	if _, err := raw.Peek(1); err == io.EOF {
		return []byte{}, nil
	}

	var r io.Reader = raw
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(raw)
	case "gzip":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// decodeBody returns the JSON value of data when the content type says
// JSON, otherwise the text. Invalid JSON falls back to text.
func decodeBody(headers http.Header, data []byte) any {
	if isJSON(headers.Get("Content-Type")) && len(bytes.TrimSpace(data)) > 0 {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v
		}
	}
	return string(data)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
