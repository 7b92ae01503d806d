package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planease/engine/internal/api"
	"github.com/planease/engine/pkg/config"
	"github.com/planease/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func memoryConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		ItemStore:           "memory",
		ObjectStore:         "memory",
		FilesBucket:         "files",
		StagingPrefix:       "intake/",
		PermanentPrefix:     "projects/",
		IntakeTable:         "sessions",
		ProjectsTable:       "projects",
		MembersTable:        "members",
		ConditionsTable:     "conditions",
		DocumentsTable:      "documents",
		SummaryTable:        "summaries",
		BatchMaxRetries:     2,
		BatchBaseDelay:      time.Millisecond,
		RelocateConcurrency: 2,
		ClaimSessions:       true,
		ClaimTTL:            time.Minute,
	}
}

func TestNewMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	require.Nil(t, a.Queue)
	require.Empty(t, a.Readiness())
	require.NoError(t, a.Migrate(context.Background()))

	rr := httptest.NewRecorder()
	api.NewRouter(a.Dependencies()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.ObjectStore = "ftp"
	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "unknown object store")
}

func TestConfigMapping(t *testing.T) {
	cfg := memoryConfig()
	require.Equal(t, "sessions", Tables(cfg).Sessions)

	p := RetryPolicy(cfg)
	require.Equal(t, 2, p.MaxRetries)
	require.Equal(t, time.Millisecond, p.BaseDelay)
	require.Equal(t, 2*time.Second, p.MaxDelay)

	fc := FinaliseConfig(cfg)
	require.Equal(t, "files", fc.Bucket)
	require.True(t, fc.ClaimSessions)
}
