package http

import (
	"github.com/telecare-api/internal/application/call"
	"github.com/telecare-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/telecare-api/internal/infrastructure/jwt"
	s3infra "github.com/telecare-api/internal/infrastructure/s3"
)

// Deps holds the infrastructure dependencies for the router. The call
// gateway is constructed in main because the websocket feed and the offline
// alert sink share it.
type Deps struct {
	ProfileRepo *dynamo.ProfileRepo
	SessionRepo *dynamo.SessionRepo
	DeviceRepo  *dynamo.DeviceRepo
	AvatarStore *s3infra.Store
	JWTProvider *jwtinfra.Provider
	Gateway     call.Gateway
}
