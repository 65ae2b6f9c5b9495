package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// tokenTransport rewrites the form-encoded token requests x/oauth2 sends into
// GoTrue's dialect: the grant goes in the query string and the parameters in a
// JSON body.
type tokenTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	form, err := readForm(req)
	if err != nil {
		return nil, err
	}

	var grant string
	var params map[string]string
	switch form.Get("grant_type") {
	case "authorization_code":
		grant = "pkce"
		params = map[string]string{
			"auth_code":     form.Get("code"),
			"code_verifier": form.Get("code_verifier"),
		}
	case "refresh_token":
		grant = "refresh_token"
		params = map[string]string{"refresh_token": form.Get("refresh_token")}
	default:
		return nil, fmt.Errorf("unsupported grant type %q", form.Get("grant_type"))
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	out := req.Clone(req.Context())
	query := out.URL.Query()
	query.Set("grant_type", grant)
	out.URL.RawQuery = query.Encode()
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = nil
	out.Header.Set("Content-Type", "application/json")
	out.Header.Set("Accept", "application/json")
	out.Header.Set("apikey", t.apiKey)

	return t.base.RoundTrip(out)
}

func readForm(req *http.Request) (url.Values, error) {
	if req.Body == nil {
		return url.Values{}, nil
	}
	defer req.Body.Close()

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token request: %w", err)
	}
	return url.ParseQuery(string(raw))
}
