package objectstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signer produces and validates presigned URLs with an HMAC signature
// over method/bucket/key/expiry (spec §4.3). Not a substitute for the real
// cloud providers' signature algorithms — "authentic cryptographic
// validation of request signatures" is an explicit non-goal.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) *Signer { return &Signer{key: key} }

// Presign builds a URL carrying method, expiry, and a signature over
// those fields plus bucket/key.
func (s *Signer) Presign(bucket, key, method string, expiresIn time.Duration) string {
	expiry := time.Now().Add(expiresIn).Unix()
	sig := s.sign(bucket, key, method, expiry)
	v := url.Values{}
	v.Set("bucket", bucket)
	v.Set("key", key)
	v.Set("method", method)
	v.Set("expires", strconv.FormatInt(expiry, 10))
	v.Set("sig", sig)
	return "/" + bucket + "/" + key + "?" + v.Encode()
}

// Validate reports whether a presigned URL (as produced by Presign) is
// unexpired and correctly signed.
func (s *Signer) Validate(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	bucket := q.Get("bucket")
	key := q.Get("key")
	method := q.Get("method")
	expiresStr := q.Get("expires")
	sig := q.Get("sig")
	if bucket == "" || method == "" || expiresStr == "" || sig == "" {
		return false
	}
	expiry, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > expiry {
		return false
	}
	expected := s.sign(bucket, key, method, expiry)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(bucket, key, method string, expiry int64) string {
	mac := hmac.New(sha256.New, s.key)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", strings.ToUpper(method), bucket, key, expiry)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
