package ansible

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Harrysk/ibm.qradar/shared/common"
)

// Exit codes of a module process
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Result is the outcome of one module invocation
type Result struct {
	Failed  bool
	Changed bool
	Msg     string
	// Data holds module specific return values such as qradar_return_data
	Data map[string]interface{}
	// Err is the failure cause, kept for logging
	Err error
}

// Success creates a successful result
func Success(changed bool, msg string, data map[string]interface{}) Result {
	return Result{Changed: changed, Msg: msg, Data: data}
}

// Failure creates a failed result. The message shown to the caller is taken
// from err when msg is empty.
func Failure(msg string, err error) Result {
	if msg == "" && err != nil {
		msg = common.UserMessage(err)
	}
	return Result{Failed: true, Msg: msg, Err: err}
}

// Exit writes the result as the module's JSON output and returns the process exit code
func Exit(w io.Writer, result Result) int {
	output := make(map[string]interface{}, len(result.Data)+3)
	for key, value := range result.Data {
		output[key] = value
	}
	output["changed"] = result.Changed
	output["msg"] = result.Msg

	code := ExitSuccess
	if result.Failed {
		output["failed"] = true
		if appErr := common.GetAppError(result.Err); appErr != nil {
			output["error_code"] = string(appErr.Code)
		}
		code = ExitFailure
	}

	data, err := json.Marshal(output)
	if err != nil {
		fallback, _ := json.Marshal(map[string]interface{}{
			"failed":  true,
			"changed": false,
			"msg":     fmt.Sprintf("failed to encode module result: %v", err),
		})
		data = fallback
		code = ExitFailure
	}

	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return ExitFailure
	}
	return code
}
