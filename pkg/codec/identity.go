package codec

// IdentityCodec stores blocks verbatim. It is the baseline for integration
// tests and the right choice for payloads that are already compressed, where
// a real codec would only expand the data.
type IdentityCodec struct{}

func (IdentityCodec) ID() uint16   { return IDIdentity }
func (IdentityCodec) Name() string { return "identity" }

func (IdentityCodec) Compress(raw []byte) ([]byte, []byte, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil, nil
}

func (IdentityCodec) Decompress(compressed, _ []byte) ([]byte, error) {
	out := make([]byte, len(compressed))
	copy(out, compressed)
	return out, nil
}

func init() {
	Register(IdentityCodec{})
}
