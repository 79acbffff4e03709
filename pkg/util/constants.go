package util

const (
	// DefaultTargetName is the advertised name of the peripheral we stream
	// to. Discovery matches on exact name equality, nothing else.
	DefaultTargetName = "BT24"

	// AttWriteHeaderBytes is the ATT header overhead on a write-without-
	// response PDU; the usable payload per write is the negotiated MTU minus
	// this.
	AttWriteHeaderBytes = 3

	// PreferredMTU is the MTU requested during exchange. The peripheral may
	// negotiate it down; the granted value is what bounds chunking.
	PreferredMTU = 256

	// DefaultGridRows and DefaultGridCols are the product's grid shape: one
	// averaged value per horizontal quadrant.
	DefaultGridRows = 1
	DefaultGridCols = 4
)
