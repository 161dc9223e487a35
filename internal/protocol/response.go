package protocol

import (
	"encoding/binary"
	"io"
)

// Response header is Kafka's v0 shape: CorrelationID only, no error code or
// further fields. Wire layout: [Size(4)][CorrelationID(4)][Body...].
const (
	RESPONSE_HEADER_SIZE = CORRELATION_ID_SIZE
	CORRELATION_ID_SIZE  = 4

	FRAMING_SIZE = 4 // leading size prefix, fixed width, same for requests and responses
)

// SendResponse writes the size+correlation-ID header into a stack array to
// avoid an extra heap allocation, then writes the body straight to w with
// no intermediate copy.
func SendResponse(w io.Writer, correlationID int32, body []byte) error {

	payloadSize := RESPONSE_HEADER_SIZE + len(body)

	var headerBuf [FRAMING_SIZE + RESPONSE_HEADER_SIZE]byte

	var offset = 0

	binary.BigEndian.PutUint32(headerBuf[offset:offset+FRAMING_SIZE], uint32(payloadSize))
	offset += FRAMING_SIZE

	binary.BigEndian.PutUint32(headerBuf[offset:offset+CORRELATION_ID_SIZE], uint32(correlationID))
	offset += CORRELATION_ID_SIZE

	if _, err := w.Write(headerBuf[:]); err != nil {
		return err
	}

	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}

	return nil
}
