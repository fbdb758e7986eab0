package router

import "strings"

// Feature bits exchanged in FEATURE_MASK records.
const (
	FeatureMaskSupport          uint32 = 1 << 0
	FeatureMasterSetsCommonMask uint32 = 1 << 1
	FeatureLogOnDemand          uint32 = 1 << 2
	FeatureVersionRspOnMaster   uint32 = 1 << 3
	FeatureReqRsp               uint32 = 1 << 4
	FeaturePresetMasks          uint32 = 1 << 5
	FeatureAppsHDLCEncode       uint32 = 1 << 6
	FeatureSTM                  uint32 = 1 << 9
	FeaturePeripheralBuffering  uint32 = 1 << 10
	FeatureMaskCentralization   uint32 = 1 << 11
	FeatureSockets              uint32 = 1 << 13
	FeatureDCIExtendedHeader    uint32 = 1 << 14
	FeatureDiagID               uint32 = 1 << 15
	FeaturePktHeaderUntag       uint32 = 1 << 16
	FeatureDiagIDFeatureMask    uint32 = 1 << 19
)

// baseFeatures is offered to every peripheral.
const baseFeatures = FeatureMaskSupport |
	FeatureMasterSetsCommonMask |
	FeatureAppsHDLCEncode |
	FeatureDiagID |
	FeatureDiagIDFeatureMask

var featureNames = []struct {
	bit  uint32
	name string
}{
	{FeatureMaskSupport, "FEATURE_MASK_SUPPORT"},
	{FeatureMasterSetsCommonMask, "MASTER_SETS_COMMON_MASK"},
	{FeatureLogOnDemand, "LOG_ON_DEMAND"},
	{FeatureVersionRspOnMaster, "VERSION_RSP_ON_MASTER"},
	{FeatureReqRsp, "REQ_RSP"},
	{FeaturePresetMasks, "PRESET_MASKS"},
	{FeatureAppsHDLCEncode, "APPS_HDLC_ENCODE"},
	{FeatureSTM, "STM"},
	{FeaturePeripheralBuffering, "PERIPHERAL_BUFFERING"},
	{FeatureMaskCentralization, "MASK_CENTRALIZATION"},
	{FeatureSockets, "SOCKETS"},
	{FeatureDCIExtendedHeader, "DCI_EXTENDED_HEADER"},
	{FeatureDiagID, "DIAG_ID"},
	{FeaturePktHeaderUntag, "PKT_HEADER_UNTAG"},
	{FeatureDiagIDFeatureMask, "DIAG_ID_FEATURE_MASK"},
}

// FeatureNames lists the known feature bits set in mask, lowest bit first.
// Undefined bits are omitted.
func FeatureNames(mask uint32) []string {
	out := make([]string, 0, 4)
	for _, f := range featureNames {
		if mask&f.bit != 0 {
			out = append(out, f.name)
		}
	}
	return out
}

func formatFeatures(mask uint32) string {
	return strings.Join(FeatureNames(mask), "|")
}
