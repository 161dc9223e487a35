package broker

import (
	"encoding/binary"
	"fmt"

	"kopperstack/internal/partitionlog"
	"kopperstack/internal/protocol"
)

const entryHeaderSize = 20 // offset(8) + timestamp(8) + value length(4)

func (b *Broker) handleRequest(req *protocol.Request) ([]byte, error) {
	switch req.Header.ApiKey {
	case protocol.ApiKeyProduce:
		return b.handleProduce(req)
	case protocol.ApiKeyFetch:
		return b.handleFetch(req)
	default:
		return nil, fmt.Errorf("unknown api key: %d", req.Header.ApiKey)
	}
}

// parseTopicPrefix reads a 2-byte length-prefixed topic name from the front
// of a request body and returns it alongside the remaining body.
func parseTopicPrefix(body []byte) (string, []byte, error) {
	if len(body) < 2 {
		return "", nil, fmt.Errorf("request body too short for topic prefix")
	}
	topicLen := int(binary.BigEndian.Uint16(body[0:2]))
	if len(body) < 2+topicLen {
		return "", nil, fmt.Errorf("request body too short for topic name")
	}
	return string(body[2 : 2+topicLen]), body[2+topicLen:], nil
}

func (b *Broker) guard(topicName string) (*partitionlog.Guard, error) {
	g, ok := b.partitions[topicName]
	if !ok {
		return nil, fmt.Errorf("unknown topic %q", topicName)
	}
	return g, nil
}

func (b *Broker) handleProduce(req *protocol.Request) ([]byte, error) {
	topicName, value, err := parseTopicPrefix(req.Body)
	if err != nil {
		return nil, err
	}

	offset, err := b.Publisher.Publish(topicName, value)
	if err != nil {
		return nil, err
	}

	resp := make([]byte, 8)
	binary.BigEndian.PutUint64(resp, offset)
	return resp, nil
}

func (b *Broker) handleFetch(req *protocol.Request) ([]byte, error) {
	topicName, rest, err := parseTopicPrefix(req.Body)
	if err != nil {
		return nil, err
	}
	if len(rest) < 8 {
		return nil, fmt.Errorf("fetch request missing offset")
	}
	offset := binary.BigEndian.Uint64(rest[0:8])

	g, err := b.guard(topicName)
	if err != nil {
		return nil, err
	}

	collection, consumeErr := g.Consume(offset)
	if consumeErr != nil {
		b.log.Warnw("broker fetch error", "topic", topicName, "offset", offset, "error", consumeErr)
		return []byte{}, nil
	}

	var resp []byte
	for {
		entry, ok := collection.Next()
		if !ok {
			break
		}
		header := make([]byte, entryHeaderSize)
		binary.BigEndian.PutUint64(header[0:8], entry.Offset)
		binary.BigEndian.PutUint64(header[8:16], entry.Timestamp)
		binary.BigEndian.PutUint32(header[16:20], uint32(len(entry.Value)))
		resp = append(resp, header...)
		resp = append(resp, entry.Value...)
	}

	return resp, nil
}
