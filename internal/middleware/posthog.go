package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AnalyticsSink receives ledger outcome events. *utils.PosthogClientWrapper satisfies it.
type AnalyticsSink interface {
	IsInitialized() bool
	Enqueue(distinctID string, event string, properties map[string]any)
}

// Outcomes reported with every ledger event.
const (
	OutcomeExecuted = "executed"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

const (
	errorCodeKey = "ledgerErrorCode"
	replayedKey  = "ledgerReplayed"
)

// ledgerEvents names the event for each money-moving or state-changing route. Reads are not tracked.
var ledgerEvents = map[string]string{
	"POST /api/v1/accounts":                          "account_opened",
	"POST /api/v1/transfers":                         "transfer",
	"POST /api/v1/transfers/:reference/reverse":      "transfer_reversal",
	"POST /api/v1/loans":                             "loan_application",
	"POST /api/v1/loans/:loanId/payment":             "loan_payment",
	"POST /api/v1/admin/accounts/:accountId/deposit": "deposit",
	"PUT /api/v1/admin/accounts/:accountId/status":   "account_status_change",
	"POST /api/v1/admin/loans/:loanId/approve":       "loan_approval",
	"POST /api/v1/admin/loans/:loanId/disburse":      "loan_disbursement",
	"POST /api/v1/admin/loans/:loanId/default":       "loan_default",
}

// SetErrorCode records the stable error code a handler answered with.
func SetErrorCode(c *gin.Context, code string) {
	c.Set(errorCodeKey, code)
}

// MarkReplayed flags the response as a replay of an earlier idempotent request.
func MarkReplayed(c *gin.Context) {
	c.Set(replayedKey, true)
}

// LedgerEventName returns the analytics event for a route, or false when the route is not tracked.
func LedgerEventName(method, fullPath string) (string, bool) {
	event, ok := ledgerEvents[method+" "+fullPath]
	return event, ok
}

// Outcome classifies a finished request.
func Outcome(c *gin.Context) string {
	status := c.Writer.Status()
	switch {
	case status >= http.StatusInternalServerError:
		return OutcomeFailed
	case status >= http.StatusBadRequest:
		return OutcomeRejected
	case c.GetBool(replayedKey):
		return OutcomeReplayed
	default:
		return OutcomeExecuted
	}
}

// PosthogMiddleware reports the outcome of every tracked ledger operation, including rejections.
func PosthogMiddleware(sink AnalyticsSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sink == nil || !sink.IsInitialized() {
			c.Next()
			return
		}

		c.Next()

		event, tracked := LedgerEventName(c.Request.Method, c.FullPath())
		if !tracked {
			return
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return
		}

		props := map[string]any{
			"outcome":     Outcome(c),
			"status_code": c.Writer.Status(),
		}
		if code := c.GetString(errorCodeKey); code != "" {
			props["error_code"] = code
		}
		if role := GetRoleFromContext(c); role != "" {
			props["role"] = role
		}
		for _, param := range c.Params {
			props[param.Key] = param.Value
		}
		sink.Enqueue(userID, event, props)
	}
}
