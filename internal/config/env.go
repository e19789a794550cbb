package config

import "strings"

// Environment variables overriding file settings.
const (
	EnvStorageDriver = "PORENET_STORAGE_DRIVER"
	EnvSQLitePath    = "PORENET_SQLITE_PATH"
	EnvPostgresDSN   = "PORENET_POSTGRES_DSN"
	EnvBlobDriver    = "PORENET_BLOB_DRIVER"
	EnvBlobFSRoot    = "PORENET_BLOB_FS_ROOT"
	EnvS3Bucket      = "PORENET_BLOB_S3_BUCKET"
	EnvS3Region      = "PORENET_BLOB_S3_REGION"
	EnvS3Endpoint    = "PORENET_BLOB_S3_ENDPOINT"
	EnvS3PathStyle   = "PORENET_BLOB_S3_PATH_STYLE"
	EnvLogLevel      = "PORENET_LOG_LEVEL"
	EnvLogFormat     = "PORENET_LOG_FORMAT"
	EnvInterpolation = "PORENET_INTERPOLATION"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from non-empty environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvStorageDriver, &c.Storage.Driver)
	set(EnvSQLitePath, &c.Storage.SQLitePath)
	set(EnvPostgresDSN, &c.Storage.PostgresDSN)
	set(EnvBlobDriver, &c.Blob.Driver)
	set(EnvBlobFSRoot, &c.Blob.FSRoot)
	set(EnvS3Bucket, &c.Blob.S3.Bucket)
	set(EnvS3Region, &c.Blob.S3.Region)
	set(EnvS3Endpoint, &c.Blob.S3.Endpoint)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
	set(EnvInterpolation, &c.Interpolation)
	if v, ok := lookup(EnvS3PathStyle); ok && v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	// The AWS chain reads these itself; mirroring them keeps explicit
	// credentials and endpoint in one place for MinIO setups.
	set("AWS_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	set("AWS_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
}
