package payments

import (
	"net/url"

	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
)

// tokenQueryKey is the fixed query parameter carrying the order token on
// provider redirect URLs.
const tokenQueryKey = "token"

// ExtractOrderToken pulls the order token out of a provider redirect URL.
// A redirect URL without a token is a provider contract break, not a user
// error, so the failure is reported as an integration defect.
func ExtractOrderToken(redirectURL string) (string, error) {
	if redirectURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeIntegration, "redirect url is empty")
	}
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeIntegration, err, "redirect url is not parseable")
	}
	token := parsed.Query().Get(tokenQueryKey)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeIntegration, "redirect url carries no order token")
	}
	return token, nil
}
