package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// InvalidFormatSuffix tags raw entries that never reached the platform
// because they failed phone number validation.
const InvalidFormatSuffix = " (Invalid Format)"
