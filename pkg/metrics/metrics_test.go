package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	collector := NewCollector("qradar_module")
	collector.RecordAPIRequest("GET", "/api/siem/offenses", 200, 20*time.Millisecond)
	collector.RecordReconcileAction("qradar_log_source_management", "create", true)
	collector.RecordRun("qradar_log_source_management", "success", time.Second)
	collector.RecordError("TRANSPORT_ERROR", "qradar_client")

	path := filepath.Join(t.TempDir(), "qradar.prom")
	require.NoError(t, collector.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `qradar_module_api_requests_total{endpoint="/api/siem/offenses",method="GET",status_code="200"} 1`)
	assert.Contains(t, text, `qradar_module_reconcile_actions_total{action="create",check_mode="true",module="qradar_log_source_management"} 1`)
	assert.Contains(t, text, `qradar_module_errors_total{component="qradar_client",error_type="TRANSPORT_ERROR"} 1`)
	assert.Contains(t, text, "qradar_module_module_last_run_timestamp_seconds")
}

func TestWriteTextfileWithoutPath(t *testing.T) {
	assert.NoError(t, NewCollector("x").WriteTextfile(""))
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), time.Millisecond)
}
