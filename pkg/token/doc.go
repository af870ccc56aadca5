// Package token issues and verifies compact, self-expiring capability tokens.
//
// Tokens carry a plain delimited payload signed with HMAC-SHA256 and are
// their own proof: there is no server-side session table and no revocation
// list. Rotating the signing secret invalidates every outstanding token.
//
// Two kinds share the mechanism:
//
//   - dashboard tokens embed only an expiry timestamp
//   - upload tokens embed a bucket ID and an expiry timestamp
//
// Token format: base64url(payload + "." + hex(hmac)). The payload is a
// colon-delimited string rather than JSON to keep tokens short and the
// signature coverage unambiguous. All parsing and serialization lives in
// this package; callers never split tokens themselves.
//
// # Usage
//
//	codec := token.NewCodec(secret)
//
//	link := codec.IssueUpload("aK3x9fQ21b", token.DefaultUploadTTL)
//
//	bucketID, err := codec.VerifyUpload(link)
//	if err != nil {
//	    // token.ErrMalformed, token.ErrBadSignature or token.ErrExpired
//	}
package token
