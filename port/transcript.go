package port

// Transcript is the minimal accumulation-buffer contract used while draining
// a child's output stream. Chunks are appended in read order; Bytes returns a
// snapshot of the concatenation so far. Implementations are provided by
// adapters/transcript.
type Transcript interface {
	Append(chunk string)
	Len() int
	Bytes() []byte
}
