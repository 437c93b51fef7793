package iflytek

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Signed request target. The dial endpoint may differ, the signature always
// covers this host and path.
const (
	SignedHost = "iat-api.xfyun.cn"
	SignedPath = "/v2/iat"

	DefaultEndpoint = "wss://" + SignedHost + SignedPath
)

// Credentials identify the application to iFlytek.
type Credentials struct {
	AppID     string
	APIKey    string
	APISecret string
}

// Configured reports whether all three credentials are present.
func (c Credentials) Configured() bool {
	return c.AppID != "" && c.APIKey != "" && c.APISecret != ""
}

// signedRequest carries the query parameters and headers of one handshake.
type signedRequest struct {
	Date          string
	Authorization string // plain authorization line
	Query         url.Values
}

// sign builds the HMAC-SHA256 authorization for a handshake at t.
func sign(creds Credentials, t time.Time) signedRequest {
	date := t.UTC().Format(http.TimeFormat)
	canonical := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", SignedHost, date, SignedPath)

	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(canonical))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		creds.APIKey, signature,
	)

	query := url.Values{}
	query.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	query.Set("date", date)
	query.Set("host", SignedHost)

	return signedRequest{
		Date:          date,
		Authorization: authorization,
		Query:         query,
	}
}

// URL appends the signed query to endpoint.
func (r signedRequest) URL(endpoint string) string {
	return endpoint + "?" + r.Query.Encode()
}

// Header returns the handshake headers sent alongside the signed query.
func (r signedRequest) Header() http.Header {
	h := http.Header{}
	h.Set("Date", r.Date)
	h.Set("Authorization", r.Authorization)
	return h
}
