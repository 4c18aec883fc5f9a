package charmhub

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/canonical/charm-release/internal/constants"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// AuthMacaroon returns the Charmhub macaroon from the environment, used to
// authenticate direct Charmhub API calls such as track creation. The
// credentials are provided by "charmcraft login --export $outfile" and
// exposed via CHARMCRAFT_AUTH.
func AuthMacaroon() (string, error) {
	exported := os.Getenv(constants.EnvCharmcraftAuth)
	if exported == "" {
		return "", apperrors.ErrMissingCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(exported)
	if err != nil {
		return "", apperrors.ErrMalformedCredentials
	}

	var auth struct {
		V string `json:"v"`
	}
	if err := json.Unmarshal(decoded, &auth); err != nil || auth.V == "" {
		return "", apperrors.ErrMalformedCredentials
	}
	return auth.V, nil
}
