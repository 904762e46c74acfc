package consts

// StatusType 路由操作结果
type StatusType string

const (
	// StatusApplied both resources were changed
	StatusApplied StatusType = "Applied"
	// StatusUnchanged the route already existed exactly as requested
	StatusUnchanged StatusType = "Unchanged"
	// StatusRolledBack a later step failed and earlier writes were reverted
	StatusRolledBack StatusType = "RolledBack"
	// StatusFailed nothing was written, or the failing write had nothing to revert
	StatusFailed StatusType = "Failed"
	// StatusPartialFailure remote state is inconsistent and needs an operator
	StatusPartialFailure StatusType = "PartialFailure"
)

const (
	// CatchAllService is the service of the mandatory terminal ingress rule.
	CatchAllService = "http_status:404"
	// TunnelTargetSuffix is appended to the tunnel id to form the CNAME target.
	TunnelTargetSuffix = "cfargotunnel.com"
	RecordTypeCNAME    = "CNAME"
	// RecordTTLAuto lets the provider pick the TTL of proxied records.
	RecordTTLAuto = 1
)

const (
	HeaderAuthorization   = "Authorization"
	HeaderContentType     = "Content-Type"
	ContentTypeJSON       = "application/json"
	DefaultAPIBaseURL     = "https://api.cloudflare.com/client/v4"
	DefaultRequestTimeout = 15 // seconds
	DefaultMaxRetries     = 2
)

// credential keys
const (
	KeyAccountID = "account_id"
	KeyZoneID    = "zone_id"
	KeyTunnelID  = "tunnel_id"
	KeyAPIToken  = "api_token"

	DefaultKeychainService = "com.jxo-me.talpa"
)

// CredentialKeys lists every key `setup` writes, in prompt order.
var CredentialKeys = []string{KeyAccountID, KeyZoneID, KeyTunnelID, KeyAPIToken}

// process exit codes
const (
	ExitOK                = 0
	ExitError             = 1
	ExitInvalidArgument   = 2
	ExitAuthRejected      = 3
	ExitAPIUnavailable    = 4
	ExitRouteNotFound     = 5
	ExitMalformedConfig   = 6
	ExitDNSConflict       = 7
	ExitCredentialMissing = 8
	ExitPartialFailure    = 10
)
