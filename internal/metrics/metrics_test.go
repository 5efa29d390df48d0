package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDatabaseMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBTransactionDuration", DBTransactionDuration},
		{"DBConnectionsOpen", DBConnectionsOpen},
		{"DBSizeBytes", DBSizeBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestScannerMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ScanRunsTotal", ScanRunsTotal},
		{"ScanErrors", ScanErrors},
		{"ScanLastRunTimestamp", ScanLastRunTimestamp},
		{"ScanLastRunDuration", ScanLastRunDuration},
		{"ScanAssetsIndexed", ScanAssetsIndexed},
		{"ScanArtistsProcessed", ScanArtistsProcessed},
		{"ScanInProgress", ScanInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestSearchMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"SearchQueriesTotal", SearchQueriesTotal},
		{"SearchDuration", SearchDuration},
		{"SearchResultsTotal", SearchResultsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsDoesNotPanic(t *testing.T) {
	InitializeMetrics()
}

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorCollectsOnStart(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		TotalAssets:  3,
		TotalImages:  2,
		TotalStories: 1,
		TotalTags:    4,
	}}

	c := NewCollector(provider, "", time.Hour)
	c.Start()
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for provider.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("collector never called GetStats")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, "", time.Hour)
	c.collect()
}

func TestCollectorDBSizes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	if err := os.WriteFile(dbPath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c := NewCollector(nil, dbPath, time.Hour)
	c.collect()
}
