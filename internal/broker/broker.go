// Package broker adapts the produce/fetch TCP wire protocol onto Kopper's
// topic metadata and per-topic Partition logs, plus a minimal HTTP admin
// surface over the topic list.
package broker

import (
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"kopperstack/internal/partitionlog"
	"kopperstack/internal/protocol"
	"kopperstack/internal/publisher"
	"kopperstack/internal/topic"
)

type Broker struct {
	Config    Config
	Topics    *topic.Service
	Publisher *publisher.Service

	// partitions backs fetch lookups directly; produce always goes through
	// Publisher so the topic-existence check can't be bypassed.
	partitions map[string]*partitionlog.Guard
	log        *zap.SugaredLogger

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewBroker(cfg Config, topics *topic.Service, pub *publisher.Service, partitions map[string]*partitionlog.Guard, log *zap.SugaredLogger) *Broker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Broker{
		Config:     cfg,
		Topics:     topics,
		Publisher:  pub,
		partitions: partitions,
		log:        log,
		quit:       make(chan struct{}),
	}
}

func (b *Broker) Start() error {
	ln, err := net.Listen("tcp", b.Config.ListenAddr)
	if err != nil {
		return err
	}

	b.log.Infow("broker listening", "addr", b.Config.ListenAddr)

	go func() {
		<-b.quit
		b.log.Infow("broker stopping, closing listener")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-b.quit:
				return nil
			default:
				b.log.Warnw("broker accept error", "error", err)
				continue
			}
		}

		b.wg.Add(1)
		go b.handleConnection(conn)
	}
}

func (b *Broker) Stop() {
	close(b.quit)
	b.wg.Wait()
}

func (b *Broker) handleConnection(conn net.Conn) {
	defer func() {
		conn.Close()
		b.wg.Done()
	}()

	for {
		req, err := protocol.ReadRequest(conn)
		if err != nil {
			if err != io.EOF {
				b.log.Warnw("broker connection closed with error", "error", err)
			}
			return
		}

		err = func() error {
			defer req.Release()

			respBody, handleErr := b.handleRequest(req)
			if handleErr != nil {
				b.log.Warnw("broker handler error", "error", handleErr)
				return handleErr
			}

			return protocol.SendResponse(conn, req.Header.CorrelationID, respBody)
		}()

		if err != nil {
			return
		}
	}
}
