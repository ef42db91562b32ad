package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/housecup/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.BlobBackend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.LoadingTimeoutMS, convey.ShouldEqual, 1000)
				convey.So(cfg.SeedDefaultHouses, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HOUSECUP_ADDR", ":8080")
			_ = os.Setenv("HOUSECUP_STORE_BACKEND", "redis")
			_ = os.Setenv("HOUSECUP_REDIS_ADDR", "localhost:6379")
			_ = os.Setenv("HOUSECUP_REPAIR_INTERVAL_S", "30")
			_ = os.Setenv("HOUSECUP_SEED_DEFAULT_HOUSES", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.RepairInterval().Seconds(), convey.ShouldEqual, 30)
				convey.So(cfg.SeedDefaultHouses, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
blob_backend: s3
s3_bucket: photos
queue_size: 64
`)
			_ = os.Setenv("HOUSECUP_CONFIG", tmpFile)
			_ = os.Setenv("HOUSECUP_QUEUE_SIZE", "128")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BlobBackend, convey.ShouldEqual, "s3")
				convey.So(cfg.S3Bucket, convey.ShouldEqual, "photos")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("HOUSECUP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the address is blanked out", func() {
			_ = os.Setenv("HOUSECUP_ADDR", " ")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected as invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"HOUSECUP_CONFIG",
		"HOUSECUP_ADDR",
		"HOUSECUP_STORE_BACKEND",
		"HOUSECUP_REDIS_ADDR",
		"HOUSECUP_REPAIR_INTERVAL_S",
		"HOUSECUP_SEED_DEFAULT_HOUSES",
		"HOUSECUP_QUEUE_SIZE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "housecup-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	_ = tmpFile.Close()
	return tmpFile.Name()
}
