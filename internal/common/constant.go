package common

// AccessTokenHeaderName is the gRPC metadata key carrying the gateway access
// token on outbound calls.
const AccessTokenHeaderName = "access_token"

// Metadata keys of the client's SQLite key/value table.
const (
	MetaRoster         = "caliope.users"
	MetaCurrent        = "caliope.current"
	MetaRefreshToken   = "session.refresh_token"
	MetaSessionUID     = "session.uid"
	MetaSessionEmail   = "session.email"
	MetaTipCachePrefix = "tip."
)
