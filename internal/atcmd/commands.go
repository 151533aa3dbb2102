// Package atcmd tracks AT commands written to the modem and resolves them
// from the response blocks that follow their echo.
package atcmd

import "fmt"

// Commands issued by the driver.
const (
	CmdEnableGPS   = "AT+GPS=1"
	CmdDisableGPS  = "AT+GPS=0"
	CmdSignal      = "AT+CSQ"
	CmdGPSMetadata = "AT+GPSMD?"
)

// Status lines terminating a response block.
const (
	OK       = "OK"
	ERROR    = "ERROR"
	CmeError = "+CME ERROR:"
	CmsError = "+CMS ERROR:"
)

// Sentinel values stored in place of a parsed response.
const (
	NoResponse = "NO_RESPONSE"
	WriteError = "WRITE_ERROR"
	Timeout    = "TIMEOUT"
)

// PayloadMarker starts the information line of a response.
const PayloadMarker = "+"

// CmdOutputRate sets the continuous positioning output period in seconds; 0
// stops the output.
func CmdOutputRate(seconds int) string {
	return fmt.Sprintf("AT+GPSRD=%d", seconds)
}
