package support

// ParamKey identifies a single subscribable (channel, paramset,
// parameter) triple. Central's entity and event maps are keyed by this, letting
// Device and Entity avoid holding back-pointers to each other.
type ParamKey struct {
	ChannelAddress string
	ParamsetKey    string
	Parameter      string
}
