package scheduler

import "github.com/goliatone/go-cms-scheduler/internal/runtimeconfig"

var (
	ErrTypeNameRequired            = runtimeconfig.ErrTypeNameRequired
	ErrTypeDuplicate               = runtimeconfig.ErrTypeDuplicate
	ErrPublishPastDateInvalid      = runtimeconfig.ErrPublishPastDateInvalid
	ErrLockTTLInvalid              = runtimeconfig.ErrLockTTLInvalid
	ErrLockNameRequired            = runtimeconfig.ErrLockNameRequired
	ErrStorageDriverUnknown        = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired          = runtimeconfig.ErrStorageDSNRequired
	ErrCacheTTLInvalid             = runtimeconfig.ErrCacheTTLInvalid
	ErrTimezoneInvalid             = runtimeconfig.ErrTimezoneInvalid
	ErrAuditRetentionInvalid       = runtimeconfig.ErrAuditRetentionInvalid
	ErrCommandsCronRequiresEnabled = runtimeconfig.ErrCommandsCronRequiresEnabled
	ErrLoggingProviderRequired     = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown      = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid         = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid        = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	StorageConfig  = runtimeconfig.StorageConfig
	CacheConfig    = runtimeconfig.CacheConfig
	SweepConfig    = runtimeconfig.SweepConfig
	AuditConfig    = runtimeconfig.AuditConfig
	TypeConfig     = runtimeconfig.TypeConfig
	Features       = runtimeconfig.Features
	CommandsConfig = runtimeconfig.CommandsConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
