package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// BuildURL joins base and path and encodes params.
func BuildURL(base, path string, params url.Values) string {
	u := strings.TrimRight(base, "/")
	if path != "" {
		u += "/" + strings.TrimLeft(path, "/")
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// DecodeResponse decodes a JSON response into the target structure and
// closes the body. Non-2xx statuses become an *errors.APIError.
func DecodeResponse(resp *http.Response, source string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug().Err(err).Str("source", source).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.Redacted()
		}
		return &errors.APIError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Endpoint:   endpoint,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", source+" response", err)
	}
	return nil
}
