package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounthub/internal/monitoring"
)

func TestHealthManagerEvaluate(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "cache", report.Checks[1].Component)
}

func TestHealthManagerDownOutranksDegraded(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthManagerLivenessWithoutChecks(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.Check{})

	report := manager.EvaluateLiveness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Empty(t, report.Checks)
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("geo", func(context.Context) monitoring.ProbeResult {
		panic("lookup table missing")
	}))
	manager.RegisterReadiness(monitoring.NewCheck("mail", nil))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "geo", report.Checks[0].Component)
	require.Equal(t, "lookup table missing", report.Checks[0].Details)
	require.Equal(t, "probe not implemented", report.Checks[1].Details)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("refused"), 0).Status)

	slow := monitoring.ResultFromError("db", context.DeadlineExceeded, -time.Second)
	require.Equal(t, monitoring.StatusDegraded, slow.Status)
	require.Zero(t, slow.Duration)
}
