package config

const (
	AppDirName     = "inkpost"
	ConfigFileName = "config.yaml"
	TokenFileName  = "token"
	DraftsFileName = "drafts.db"
)

const (
	MediaBackendHTTP = "http"
	MediaBackendS3   = "s3"
)

const (
	EnvConfigPath = "INKPOST_CONFIG"
	EnvToken      = "INKPOST_TOKEN"
)
