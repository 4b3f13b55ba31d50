package domain

import "regexp"

// identificationRegex matches the trailing segment of an identification string:
//
//	ident  = *CHAR ";" *WSP device ":" token ")" EOS
//	device = 1*(CHAR except ":" and ";")
//	token  = 1*(ALPHA / DIGIT / "+" / "/" / "=" / "." / "-" / "_")
//
// The match is anchored at the end of the string. A device/token pair placed
// anywhere else is not recognised.
var identificationRegex = regexp.MustCompile(`;\s*([^:;]+):([A-Za-z0-9+/=._-]+)\)$`)

// ParseIdentification extracts the device ID and token from a client
// identification string such as
//
//	OTT TV/1.7.2.2 (Linux;Android 13; en; abc123:PAYLOAD.SIGNATURE)
//
// ok is false when the string does not end in the expected shape.
func ParseIdentification(ident string) (deviceID, token string, ok bool) {
	m := identificationRegex.FindStringSubmatch(ident)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
