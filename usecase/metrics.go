package usecase

import (
	"github.com/Harrysk/ibm.qradar/pkg/metrics"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

func recordSuccess(collector *metrics.Collector, module, action string, checkMode bool, timer *metrics.Timer) {
	if collector == nil {
		return
	}
	collector.RecordReconcileAction(module, action, checkMode)
	collector.RecordRun(module, "success", timer.Duration())
}

func recordFailure(collector *metrics.Collector, module, component string, err error, timer *metrics.Timer) {
	if collector == nil {
		return
	}
	errorType := string(common.ErrCodeInternal)
	if appErr := common.GetAppError(err); appErr != nil {
		errorType = string(appErr.Code)
	}
	collector.RecordError(errorType, component)
	collector.RecordRun(module, "failed", timer.Duration())
}
