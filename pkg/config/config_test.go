package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, int64(1), cfg.Report.SiteCourseID)
	assert.Equal(t, 1000, cfg.Report.ProgressBatchSize)
	assert.Equal(t, 100*time.Second, cfg.Report.TimeRounding)
	assert.Equal(t, PreferenceBackendSQL, cfg.Report.PreferenceBackend)
	assert.Equal(t, "moodle/course:isincompletionreports", cfg.Report.TrackedCapability)
}

func TestFromViperNormalisesReportSettings(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("REPORT_PROGRESS_BATCH_SIZE", -4)
	v.Set("REPORT_TIME_ROUNDING", "not-a-duration")
	v.Set("REPORT_PREFERENCE_BACKEND", "Memcached")
	v.Set("REPORT_BASE_URL", "https://lms.example.com/")
	v.Set("ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg := fromViper(v)
	assert.Equal(t, 1000, cfg.Report.ProgressBatchSize)
	assert.Equal(t, 100*time.Second, cfg.Report.TimeRounding)
	assert.Equal(t, PreferenceBackendSQL, cfg.Report.PreferenceBackend)
	assert.Equal(t, "https://lms.example.com", cfg.Report.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}
