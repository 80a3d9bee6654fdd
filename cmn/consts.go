package cmn

// Log entry action kinds (§3 "Log entry"). Named the way api_const.go names
// ActionMsg.Action values for the rest of the pack.
const (
	ActPlacement    = "placement"
	ActRetrieval    = "retrieval"
	ActRearrange    = "rearrangement"
	ActDisposal     = "disposal"
)

// Waste reasons (§4.D).
const (
	ReasonExpired   = "Expired"
	ReasonOutOfUses = "Out of Uses"
)

// MiB mirrors cmn/api_const.go's byte-size constants; used only for the
// store's auto-shrink threshold here (no filesystem sizing in this domain).
const MiB = 1 << 20
