package chunk

const (
	// CurrentFormatVersion is the chunked layout version we write.
	// Version 1 is the first chunked layout: a manifest under the metadata
	// key plus consecutive chunk keys holding slices of the payload.
	CurrentFormatVersion = 1

	// CompatFormatVersion is the oldest layout version we can read.
	// We will try to always support any old version, unless there is very
	// strong reason not to.
	CompatFormatVersion = 1
)
