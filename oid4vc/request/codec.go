package request

import (
	"bytes"
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/config"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/common/oid4vcerr"
)

// Encode serializes req into a compact request URL. Object and array
// parameters are JSON encoded. An empty scheme selects
// config.DefaultRequestScheme.
func Encode(req *AuthorizationRequest, scheme string) (string, error) {
	values, err := Values(req)
	if err != nil {
		return "", err
	}

	if scheme == "" {
		scheme = config.DefaultRequestScheme
	}

	return scheme + "?" + values.Encode(), nil
}

// Values returns req as URL parameters.
func Values(req *AuthorizationRequest) (url.Values, error) {
	const op = "encode request"

	if req == nil {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, op, "request is nil")
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "failed to marshal request")
	}

	var params map[string]interface{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&params); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "failed to decode request")
	}

	values := url.Values{}

	for k, v := range params {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			values.Set(k, val)
		case json.Number:
			values.Set(k, val.String())
		case bool:
			values.Set(k, strconv.FormatBool(val))
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, op, err, "failed to encode %s", k)
			}

			values.Set(k, string(b))
		}
	}

	return values, nil
}

// Decode parses a request URL of any scheme, or a bare query string. Unknown
// parameters are ignored.
func Decode(raw string) (*AuthorizationRequest, error) {
	raw = strings.TrimSpace(raw)

	query := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	} else if strings.Contains(raw, "://") || !strings.Contains(raw, "=") {
		query = ""
	}

	if query == "" {
		return nil, oid4vcerr.New(oid4vcerr.KindParse, "decode request", "request has no parameters")
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode request", err, "malformed query")
	}

	return DecodeValues(values)
}

// DecodeValues builds a request from URL parameters, such as a parsed query or
// a submitted form.
func DecodeValues(values url.Values) (*AuthorizationRequest, error) {
	params := make(map[string]interface{}, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}

	req := &AuthorizationRequest{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       jsonValueHook,
		Result:           req,
	})
	if err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode request", err, "failed to create decoder")
	}

	if err := dec.Decode(params); err != nil {
		return nil, oid4vcerr.Wrap(oid4vcerr.KindParse, "decode request", err, "invalid request parameter")
	}

	return req, nil
}

// jsonValueHook decodes JSON encoded parameters into structured fields.
func jsonValueHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Ptr:
	default:
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	if s == "" {
		return nil, nil
	}

	if s[0] != '{' && s[0] != '[' {
		return data, nil
	}

	out := reflect.New(to)
	if err := json.Unmarshal([]byte(s), out.Interface()); err != nil {
		return nil, err
	}

	return out.Elem().Interface(), nil
}
