package provider

import (
	"bytes"
	"encoding/json"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/request"
	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/response"
)

// releasedClaims merges the assertion with the standard claims the relying
// party asked for. All available claims are released when the request names
// none.
func releasedClaims(assertion response.Assertion, claims *response.StandardClaims,
	requested *request.ClaimRequests,
) (map[string]interface{}, error) {
	out, err := toMap(assertion)
	if err != nil {
		return nil, err
	}

	if claims == nil {
		return out, nil
	}

	available, err := toMap(claims)
	if err != nil {
		return nil, err
	}

	var wanted map[string]*request.IndividualClaimRequest
	if requested != nil {
		wanted = requested.IDToken
	}

	for name, value := range available {
		if len(wanted) > 0 {
			if _, ok := wanted[name]; !ok {
				continue
			}
		}

		if _, registered := out[name]; registered {
			continue
		}

		out[name] = value
	}

	for name, r := range wanted {
		if _, ok := out[name]; !ok && r != nil && r.Essential {
			logger.Warnf("essential claim %s is not available", name)
		}
	}

	return out, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	return m, nil
}
