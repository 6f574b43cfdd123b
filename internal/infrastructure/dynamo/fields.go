package dynamo

// DynamoDB attribute names used in update expressions across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldDeletedAt        = "deleted_at"
	fieldStatus           = "status"
	fieldAvatarKey        = "avatar_key"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
)
