// Command loadgen drives a running broker with a stream of produce calls
// followed by a fetch pass that verifies every produced offset round-trips.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"kopperstack/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:9092", "broker listen address")
	topicName := flag.String("topic", "events", "topic to produce to")
	count := flag.Int("count", 1000, "number of records to produce")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	offsets := make([]uint64, 0, *count)
	for i := 0; i < *count; i++ {
		value := []byte(fmt.Sprintf("record-%d", i))
		offset, err := produce(conn, *topicName, value, int32(i))
		if err != nil {
			log.Fatalf("produce %d: %v", i, err)
		}
		offsets = append(offsets, offset)
	}
	produceElapsed := time.Since(start)
	log.Printf("produced %d records in %s", *count, produceElapsed)

	verified := 0
	for i, offset := range offsets {
		values, err := fetch(conn, *topicName, offset, int32(len(offsets)+int(offset)))
		if err != nil {
			log.Fatalf("fetch offset %d: %v", offset, err)
		}
		if len(values) > 0 && string(values[0]) == fmt.Sprintf("record-%d", i) {
			verified++
		}
	}
	log.Printf("verified %d/%d offsets round-tripped", verified, len(offsets))
}

func topicBody(topicName string, rest []byte) []byte {
	body := make([]byte, 2+len(topicName)+len(rest))
	binary.BigEndian.PutUint16(body[0:2], uint16(len(topicName)))
	copy(body[2:], topicName)
	copy(body[2+len(topicName):], rest)
	return body
}

func produce(conn net.Conn, topicName string, value []byte, correlationID int32) (uint64, error) {
	body := topicBody(topicName, value)
	if err := protocol.WriteRequest(conn, protocol.ApiKeyProduce, 0, correlationID, "loadgen", body); err != nil {
		return 0, err
	}
	_, respBody, err := protocol.ReadResponse(conn)
	if err != nil {
		return 0, err
	}
	if len(respBody) < 8 {
		return 0, fmt.Errorf("short produce response")
	}
	return binary.BigEndian.Uint64(respBody[0:8]), nil
}

func fetch(conn net.Conn, topicName string, offset uint64, correlationID int32) ([][]byte, error) {
	offsetBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(offsetBuf, offset)
	body := topicBody(topicName, offsetBuf)
	if err := protocol.WriteRequest(conn, protocol.ApiKeyFetch, 0, correlationID, "loadgen", body); err != nil {
		return nil, err
	}
	_, respBody, err := protocol.ReadResponse(conn)
	if err != nil {
		return nil, err
	}

	var values [][]byte
	pos := 0
	for pos+20 <= len(respBody) {
		length := int(binary.BigEndian.Uint32(respBody[pos+16 : pos+20]))
		pos += 20
		if pos+length > len(respBody) {
			break
		}
		values = append(values, respBody[pos:pos+length])
		pos += length
	}
	return values, nil
}
