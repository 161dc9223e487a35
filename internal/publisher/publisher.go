// Package publisher is a thin collaborator that checks a topic exists
// before handing its payload to the topic's partition.
package publisher

import (
	"errors"

	"go.uber.org/zap"

	"kopperstack/internal/partitionlog"
	"kopperstack/internal/topic"
)

var ErrUnknownTopic = errors.New("publisher: unknown topic")

// Service publishes messages onto per-topic partitions, after confirming
// the target topic is registered with the topic service. The broker's TCP
// produce path and any other caller that needs to write a message go
// through here rather than touching a Partition directly, so the
// topic-existence check can never be bypassed.
type Service struct {
	topics     *topic.Service
	partitions map[string]*partitionlog.Guard
	log        *zap.SugaredLogger
}

func New(topics *topic.Service, partitions map[string]*partitionlog.Guard, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{topics: topics, partitions: partitions, log: log}
}

// Publish appends payload to topicName's partition, after verifying the
// topic is registered.
func (s *Service) Publish(topicName string, payload []byte) (uint64, error) {
	exists, err := s.topics.TopicExists(topicName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUnknownTopic
	}

	guard, ok := s.partitions[topicName]
	if !ok {
		return 0, ErrUnknownTopic
	}

	offset, err := guard.Produce(payload)
	if err != nil {
		s.log.Errorw("publisher: produce failed", "topic", topicName, "error", err)
		return 0, err
	}
	return offset, nil
}
