package scheduler_test

import (
	"errors"
	"testing"
	"time"

	scheduler "github.com/goliatone/go-cms-scheduler"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := scheduler.DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*scheduler.Config)
		want   error
	}{
		{
			name:   "lock ttl",
			mutate: func(cfg *scheduler.Config) { cfg.Sweep.LockTTL = -time.Second },
			want:   scheduler.ErrLockTTLInvalid,
		},
		{
			name: "duplicate type",
			mutate: func(cfg *scheduler.Config) {
				cfg.Types = []scheduler.TypeConfig{{Name: "article"}, {Name: "article"}}
			},
			want: scheduler.ErrTypeDuplicate,
		},
		{
			name: "past date policy",
			mutate: func(cfg *scheduler.Config) {
				cfg.Types = []scheduler.TypeConfig{{Name: "article", PublishPastDate: "later"}}
			},
			want: scheduler.ErrPublishPastDateInvalid,
		},
		{
			name:   "storage driver",
			mutate: func(cfg *scheduler.Config) { cfg.Storage.Driver = "mongo" },
			want:   scheduler.ErrStorageDriverUnknown,
		},
		{
			name:   "cron without commands",
			mutate: func(cfg *scheduler.Config) { cfg.Commands.AutoRegisterCron = true },
			want:   scheduler.ErrCommandsCronRequiresEnabled,
		},
		{
			name: "logging provider",
			mutate: func(cfg *scheduler.Config) {
				cfg.Features.Logger = true
				cfg.Logging.Provider = "syslog"
			},
			want: scheduler.ErrLoggingProviderUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := scheduler.DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
