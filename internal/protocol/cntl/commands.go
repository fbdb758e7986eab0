package cntl

import "fmt"

// Control record command codes.
const (
	CmdRegister        uint32 = 1
	CmdDiagMode        uint32 = 3
	CmdFeatureMask     uint32 = 8
	CmdLogMask         uint32 = 9
	CmdEventMask       uint32 = 10
	CmdMsgMask         uint32 = 11
	CmdNumPresets      uint32 = 12
	CmdBufferingTxMode uint32 = 17
	CmdDeregister      uint32 = 27
	CmdDiagID          uint32 = 33
	CmdPassThru        uint32 = 35
)

var commandNames = map[uint32]string{
	CmdRegister:        "register",
	CmdDiagMode:        "diag_mode",
	CmdFeatureMask:     "feature_mask",
	CmdLogMask:         "log_mask",
	CmdEventMask:       "event_mask",
	CmdMsgMask:         "msg_mask",
	CmdNumPresets:      "num_presets",
	CmdBufferingTxMode: "buffering_tx_mode",
	CmdDeregister:      "deregister",
	CmdDiagID:          "diag_id",
	CmdPassThru:        "pass_thru",
}

// CommandName returns a stable label for cmd, suitable for logs and metrics.
func CommandName(cmd uint32) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%d", cmd)
}
