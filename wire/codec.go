package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CodecName is the connect codec name; requests carry
// "application/cbor".
const CodecName = "cbor"

// Codec is a connect.Codec that marshals messages as canonical CBOR.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if err := cbor.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", msg, err)
	}
	return nil
}
