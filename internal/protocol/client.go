package protocol

import (
	"encoding/binary"
	"io"
)

// WriteRequest encodes and writes a request frame in the same wire format
// ReadRequest decodes: [Size(4)][ApiKey(2)][ApiVersion(2)][CorrelationID(4)][ClientIDLen(2)][ClientID][Body].
func WriteRequest(w io.Writer, apiKey, apiVersion int16, correlationID int32, clientID string, body []byte) error {
	clientIDBytes := []byte(clientID)
	headerSize := FIXED_REQUEST_HEADER_SIZE + REQUEST_CLIENT_ID_SIZE + len(clientIDBytes)
	payloadSize := headerSize + len(body)

	buf := make([]byte, FRAMING_SIZE+payloadSize)
	offset := 0
	binary.BigEndian.PutUint32(buf[offset:], uint32(payloadSize))
	offset += FRAMING_SIZE
	binary.BigEndian.PutUint16(buf[offset:], uint16(apiKey))
	offset += REQUEST_API_KEY_SIZE
	binary.BigEndian.PutUint16(buf[offset:], uint16(apiVersion))
	offset += REQUEST_API_VERSION_SIZE
	binary.BigEndian.PutUint32(buf[offset:], uint32(correlationID))
	offset += REQUEST_CORRELATION_ID_SIZE
	binary.BigEndian.PutUint16(buf[offset:], uint16(len(clientIDBytes)))
	offset += REQUEST_CLIENT_ID_SIZE
	copy(buf[offset:], clientIDBytes)
	offset += len(clientIDBytes)
	copy(buf[offset:], body)

	_, err := w.Write(buf)
	return err
}

// ReadResponse reads one response frame and returns its correlation ID and body.
func ReadResponse(r io.Reader) (correlationID int32, body []byte, err error) {
	var sizeBuf [FRAMING_SIZE]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return 0, nil, err
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf[:]))
	if size < RESPONSE_HEADER_SIZE {
		return 0, nil, ErrPacketTooShort
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	correlationID = int32(binary.BigEndian.Uint32(payload[0:CORRELATION_ID_SIZE]))
	return correlationID, payload[CORRELATION_ID_SIZE:], nil
}
