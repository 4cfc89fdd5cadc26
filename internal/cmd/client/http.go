package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

func postJSON(base BaseURLFunc, path string, body interface{}, out io.Writer) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(base()+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp, out)
}

func getJSON(base BaseURLFunc, path string, query url.Values, out io.Writer) error {
	u := base() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp, out)
}

// printResponse pretty-prints the JSON body and surfaces non-2xx
// statuses as errors so the CLI exits non-zero.
func printResponse(resp *http.Response, out io.Writer) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var v interface{}
	if json.Unmarshal(body, &v) == nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
	} else if len(body) > 0 {
		_, _ = out.Write(body)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
